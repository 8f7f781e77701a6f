package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/agthegodyt04-cmyk/clipper/internal/api"
	"github.com/agthegodyt04-cmyk/clipper/internal/capability"
	"github.com/agthegodyt04-cmyk/clipper/internal/config"
	"github.com/agthegodyt04-cmyk/clipper/internal/encode"
	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/executor"
	"github.com/agthegodyt04-cmyk/clipper/internal/pipeline"
	"github.com/agthegodyt04-cmyk/clipper/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("clipperd: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"workers", cfg.Workers,
	)

	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("prepare data directories: %v", err)
	}

	// One daemon per data directory; a second instance would race the queue
	// and the blob store.
	lock := flock.New(filepath.Join(cfg.DataDir, "clipperd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("acquire instance lock: %v", err)
	}
	if !locked {
		log.Fatalf("another clipperd instance holds %s", lock.Path())
	}
	defer lock.Unlock()

	db, err := store.NewSQLiteStore(cfg.DBPath, cfg.BlobDir())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	probe := capability.NewProbe(cfg)
	registry := engine.NewRegistry(cfg, probe, logger)
	stages := pipeline.Stages(pipeline.Deps{
		Store:    db,
		Resolver: registry,
		Probe:    probe,
		Encoder:  &encode.SlideshowEncoder{Command: cfg.EncoderCommand},
		Logger:   logger,
	})
	broker := executor.NewBroker()
	exec := executor.New(db, stages, broker, cfg.Workers, logger, api.JobObserver{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := exec.Recover(ctx); err != nil {
		log.Fatalf("recover queue: %v", err)
	}
	exec.Start(ctx)

	srv := api.NewServer(cfg.ListenAddr, db, exec, broker, probe, registry, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	cancel()
	exec.Wait()
}
