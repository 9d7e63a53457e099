package main

import (
	"fmt"

	"tilt-dashboard/internal/assessment"
	"tilt-dashboard/internal/catalog"
	"tilt-dashboard/internal/config"
	"tilt-dashboard/internal/database"
	"tilt-dashboard/internal/handlers"
	"tilt-dashboard/internal/logger"
	"tilt-dashboard/internal/osint"
	"tilt-dashboard/internal/server"
)

func main() {
	log := logger.New(logger.ParseLevel("info"))

	cfg := config.Load(log)
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))

	database.Init(cfg.DBDSN, log)

	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		log.Fatalf("failed to load catalog from %s: %v", cfg.CatalogDir, err)
	}
	if err := database.Seed(database.DB, database.SeedOptions{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		Catalog:       cat,
	}, log); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	agg, err := osint.New(cfg.OSINT(), log.WithField("component", "osint"))
	if err != nil {
		log.Fatalf("failed to set up osint: %v", err)
	}

	store := database.NewStore(database.DB)
	svc := assessment.NewService(store, agg, log)
	h := handlers.New(store, svc, log)

	r := server.NewRouter(cfg, h, agg.Metrics().Registry())

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Infof("starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
