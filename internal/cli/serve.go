package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/async"
	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/ingest"
)

var (
	serveWatchDir  string
	serveGRPCAddr  string
	serveReprocess bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch an inbox directory and process new prescriptions",
	Long: `Watches a directory for new prescription scans, queues each one for the
worker pool and exposes a gRPC health endpoint. Documents already processed
(same content hash) are skipped unless --reprocess is given.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Check the database connection and schema",
	Args:  cobra.NoArgs,
	RunE:  runDBHealth,
}

func init() {
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "inbox directory (default $RX_WATCH_DIR)")
	serveCmd.Flags().StringVar(&serveGRPCAddr, "grpc-addr", "", "health endpoint address (default $RX_GRPC_ADDR)")
	serveCmd.Flags().BoolVar(&serveReprocess, "reprocess", false, "process documents even when their content was seen before")
	rootCmd.AddCommand(serveCmd, dbhealthCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := a.cfg.Watch.Dir
	if serveWatchDir != "" {
		dir = serveWatchDir
	}
	if dir == "" {
		return common.InvalidArgumentErrorf("a watch directory is required (--watch or RX_WATCH_DIR)")
	}
	addr := a.cfg.Server.GRPCAddr
	if serveGRPCAddr != "" {
		addr = serveGRPCAddr
	}

	ctx := cmd.Context()
	if err := a.openDB(ctx); err != nil {
		return err
	}
	proc, err := a.newProcessor(ctx, true)
	if err != nil {
		return err
	}
	queue := async.NewProcessorQueue(proc, a.logger,
		async.WithWorkers(a.cfg.Queue.Workers),
		async.WithQueueSize(a.cfg.Queue.Size),
		async.WithProcessTimeout(a.cfg.Queue.JobTimeout.Duration),
	)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		queue.Shutdown(context.Background())
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("serve.listening", "addr", lis.Addr().String(), "watch", dir)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return watchInbox(gctx, a, queue, dir)
	})
	g.Go(func() error {
		<-gctx.Done()
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Queue.JobTimeout.Duration+5*time.Second)
		defer cancel()
		queue.Shutdown(drainCtx)
		grpcServer.GracefulStop()
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	a.logger.Info("serve.stopped")
	return err
}

// watchInbox records every new document as QUEUED and hands it to the queue.
func watchInbox(ctx context.Context, a *app, queue async.Queue, dir string) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: a.cfg.Watch.InitialScan,
		Debounce:    a.cfg.Watch.Debounce.Duration,
		SkipHidden:  true,
	}, a.logger)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("serve.watch.error", "error", err)
		case path, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			submit(ctx, a, queue, path)
		}
	}
}

func submit(ctx context.Context, a *app, queue async.Queue, path string) {
	log := a.logger.With("path", path)
	doc, err := ingest.LoadDocument(path)
	if err != nil {
		log.Warn("serve.load.failed", "error", err)
		return
	}
	if !serveReprocess {
		if prev, err := a.prescriptions.LatestDoneByHash(ctx, doc.HashHex); err == nil {
			log.Info("serve.skip.duplicate", "prescription_id", prev.ID)
			return
		}
	}
	rec, err := a.prescriptions.Create(ctx, doc, constants.JobStatusQueued)
	if err != nil {
		log.Error("serve.record.failed", "error", err)
		return
	}
	ctx, traceID := common.EnsureRequestID(ctx)
	if err := queue.Enqueue(ctx, async.Job{PrescriptionID: rec.ID, Doc: doc, SubmittedAt: time.Now(), TraceID: traceID}); err != nil {
		log.Warn("serve.enqueue.failed", "prescription_id", rec.ID, "error", err)
		if ferr := a.prescriptions.Fail(context.WithoutCancel(ctx), rec.ID, err.Error()); ferr != nil {
			log.Error("serve.record.failed", "error", ferr)
		}
	}
}

func runDBHealth(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	if err := a.db.HealthCheck(cmd.Context(), 2*time.Second); err != nil {
		return fmt.Errorf("DB health: FAIL (%w)", err)
	}
	items, err := a.inventory.ListMedicines(cmd.Context())
	if err != nil {
		return err
	}
	recent, err := a.prescriptions.ListRecent(cmd.Context(), 1)
	if err != nil {
		return err
	}
	cmd.Printf("DB health: OK (%s)\n", a.db.Dialect())
	cmd.Printf("medicines: %d\n", len(items))
	if len(recent) > 0 {
		cmd.Printf("last prescription: %s\n", recent[0].CreatedAt.Local().Format(time.RFC3339))
	}
	return nil
}
