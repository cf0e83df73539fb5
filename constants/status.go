package constants

// JobStatus is the canonical status for rows in prescriptions.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // accepted by the watcher, waiting for a worker
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusOCROK   JobStatus = "OCR_OK"  // stage 1 completed (text recovered)
	JobStatusDone    JobStatus = "DONE"    // names extracted and resolved
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)

// LowStockThreshold is the stock level under which a medicine is reported as low.
const LowStockThreshold = 10
