// SkyBox daemon
//
// Indexes a remote saved-message stream into a local virtual filesystem:
// - Incremental forward indexing and resumable backfill
// - sqlite-backed item index with recycle bin lifecycle
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/TG-SkyBox/SkyBox/internal/config"
	"github.com/TG-SkyBox/SkyBox/internal/engine"
	"github.com/TG-SkyBox/SkyBox/internal/events"
	"github.com/TG-SkyBox/SkyBox/internal/index"
	"github.com/TG-SkyBox/SkyBox/internal/logging"
	"github.com/TG-SkyBox/SkyBox/internal/metrics"
	"github.com/TG-SkyBox/SkyBox/internal/source"
	"github.com/TG-SkyBox/SkyBox/internal/store"
	"github.com/TG-SkyBox/SkyBox/internal/vfs"
	"github.com/TG-SkyBox/SkyBox/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("SkyBox daemon starting",
		zap.String("db", cfg.DBPath),
		zap.String("owner", cfg.OwnerID),
		zap.Int64("chat", cfg.ChatID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logging.Fatal("open index database", zap.Error(err))
	}
	defer st.Close()

	// TODO: replace the in-memory stream with the MTProto-backed adapter
	// once the transport package lands.
	src := source.NewFake()

	eng, err := engine.New(engine.Options{
		Store:        st,
		Source:       src,
		OwnerID:      cfg.OwnerID,
		ChatID:       cfg.ChatID,
		ThumbnailDir: cfg.ThumbnailDir,
		ThumbWorkers: cfg.ThumbnailWorkers,
		CacheTTL:     5 * time.Minute,
	})
	if err != nil {
		logging.Fatal("engine init", zap.Error(err))
	}
	defer eng.Close()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	go pollLoop(ctx, eng, cfg)
	go logEvents(ctx, eng)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logging.Info("shutting down")
}

// pollLoop drives the engine: backfill history until complete, then keep
// pulling new messages on a fixed interval. Transient remote failures
// are retried here with backoff; the engine itself never retries.
func pollLoop(ctx context.Context, eng *engine.Engine, cfg *config.Config) {
	backfill(ctx, eng, cfg.BatchSize)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (int, error) {
				n, err := eng.IndexNew(ctx)
				if errors.Is(err, vfs.ErrRemoteFetchFailed) {
					return n, retry.Retryable(err)
				}
				return n, err
			})
			if err != nil {
				logging.Warn("index new messages", zap.Error(err))
			}
		}
	}
}

func backfill(ctx context.Context, eng *engine.Engine, batchSize int) {
	for {
		res, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (index.BackfillResult, error) {
			br, err := eng.BackfillBatch(ctx, batchSize)
			if errors.Is(err, vfs.ErrRemoteFetchFailed) {
				return br, retry.Retryable(err)
			}
			return br, err
		})
		if err != nil {
			logging.Warn("backfill halted", zap.Error(err))
			return
		}
		if res.IsComplete || !res.HasMore {
			logging.Info("backfill complete")
			return
		}
	}
}

// logEvents mirrors the change stream into the debug log as the JSON
// payloads a push transport would carry.
func logEvents(ctx context.Context, eng *engine.Engine) {
	ch := eng.Subscribe()
	defer eng.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := events.MarshalEvent(ev)
			if err != nil {
				logging.Warn("marshal change event", zap.Error(err))
				continue
			}
			logging.Debug("change event", zap.ByteString("event", payload))
		}
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logging.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logging.Error("metrics server", zap.Error(err))
	}
}
