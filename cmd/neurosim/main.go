package main

import (
	"log"
	"os"
	"time"

	"github.com/neurolabhq/neurosim/internal/api"
	"github.com/neurolabhq/neurosim/internal/archive"
	"github.com/neurolabhq/neurosim/internal/config"
	"github.com/neurolabhq/neurosim/internal/engine"
	"github.com/neurolabhq/neurosim/internal/sim"
	"github.com/neurolabhq/neurosim/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.Level())

	logger.Info("neurosim: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"default_timeout_s", cfg.DefaultTimeoutS,
		"max_concurrent", cfg.MaxConcurrent,
	)

	arch, err := archive.NewSQLiteArchive(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open run archive: %v", err)
	}
	defer arch.Close()

	registry := store.NewMemoryStore()
	defer registry.Close()

	catalog := sim.DefaultCatalog()
	factory := func() sim.Simulator { return sim.NewMembrane(catalog) }

	eng := engine.NewEngine(registry, factory, arch, logger)
	eng.SetDefaultTimeout(time.Duration(cfg.DefaultTimeoutS) * time.Second)
	eng.SetMaxConcurrent(int64(cfg.MaxConcurrent))

	srv := api.NewServer(cfg.ListenAddr, registry, arch, catalog, eng, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
