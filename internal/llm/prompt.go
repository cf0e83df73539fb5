package llm

const SystemPrompt = "You are a medical assistant that extracts medicine names from prescriptions. Return only valid JSON arrays."

// BuildUserPrompt asks for a bare JSON array of medicine names found in text.
func BuildUserPrompt(text string) string {
	return "Extract only the medicine names from the following prescription text.\n" +
		"Return them as a clean JSON array of strings, e.g. [\"Paracetamol\", \"Amoxicillin\"].\n" +
		"Ignore doctor notes, clinic or patient details, headers and dosage instructions.\n\n" +
		"Prescription text:\n" + text
}
