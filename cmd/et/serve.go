package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventtrace/internal/config"
	"github.com/alfredjeanlab/eventtrace/internal/correlate"
	"github.com/alfredjeanlab/eventtrace/internal/events"
	"github.com/alfredjeanlab/eventtrace/internal/server"
	"github.com/alfredjeanlab/eventtrace/internal/similarity"
	"github.com/alfredjeanlab/eventtrace/internal/status"
	"github.com/alfredjeanlab/eventtrace/internal/store"
	"github.com/alfredjeanlab/eventtrace/internal/store/postgres"
	evsync "github.com/alfredjeanlab/eventtrace/internal/sync"
	"github.com/alfredjeanlab/eventtrace/internal/wiki"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the eventtrace HTTP and gRPC servers",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so no API client is created.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// The similarity model is required; the server does not start without it.
		model, err := similarity.Load(cfg.ModelPath, similarity.Options{
			MaxSeqLen: cfg.Pipeline.MaxSeqLen,
			Download:  cfg.ModelFetch,
		})
		if err != nil {
			return fmt.Errorf("loading similarity model: %w", err)
		}
		logger.Info("similarity model loaded",
			"path", cfg.ModelPath,
			"vocab", model.VocabSize(),
			"max_seq_len", model.MaxSeqLen(),
		)

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (EVENTTRACE_NATS_URL not set)")
		}

		wikiClient := wiki.New(wiki.Options{
			APIURL:    cfg.Pipeline.WikiAPIURL,
			UserAgent: cfg.Pipeline.UserAgent,
			Window:    cfg.Pipeline.Window,
			Timeout:   cfg.Pipeline.WikiTimeout,
			Rate:      cfg.Pipeline.WikiRate,
			Logger:    logger.With("component", "wiki"),
		})

		var text wiki.TextSource = wikiClient
		if cfg.Pipeline.PageText == config.PageTextPlaceholder {
			text = wiki.PlaceholderText{}
			logger.Warn("relevance gate uses placeholder page text; every reference scores the same")
		}

		correlator := correlate.New(store, model, text, wikiClient, correlate.Options{
			Threshold: cfg.Pipeline.Threshold,
			Publisher: publisher,
			Logger:    logger.With("component", "correlate"),
		})

		eventServer := server.NewEventServer(store, correlator, status.New(cfg.Pipeline.WikiBaseURL), publisher)
		grpcServer := server.NewGRPCServer(eventServer, cfg.AuthToken)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			store.Close()
			return err
		}

		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           eventServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startSync(cfg, store, logger)

		eventServer.SetServing()
		logger.Info("eventtrace server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"threshold", correlator.Threshold(),
			"window", wikiClient.Window(),
			"page_text", cfg.Pipeline.PageText,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		eventServer.Shutdown()

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// startSync starts the export scheduler when an interval and at least one
// destination are configured. It returns nil otherwise.
func startSync(cfg *config.Config, s store.Store, logger *slog.Logger) *evsync.Scheduler {
	if cfg.SyncInterval <= 0 {
		return nil
	}

	var dests []evsync.Destination
	if cfg.SyncS3Bucket != "" {
		s3Dest, err := evsync.NewS3Destination(
			context.Background(),
			cfg.SyncS3Bucket,
			cfg.SyncS3Key,
			cfg.SyncS3Region,
			cfg.SyncS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
		}
	}

	if cfg.SyncGitRepo != "" {
		dests = append(dests, evsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch))
		logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
	}

	if len(dests) == 0 {
		return nil
	}

	scheduler := evsync.NewScheduler(s, dests, cfg.SyncInterval, logger.With("component", "sync"))
	scheduler.Start()
	logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
	return scheduler
}
