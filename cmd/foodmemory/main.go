package main

import (
	"log"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/conorfennell/foodmemory/internal/config"
	"github.com/conorfennell/foodmemory/internal/logbook"
	"github.com/conorfennell/foodmemory/internal/places"
	"github.com/conorfennell/foodmemory/internal/storage"
	"github.com/conorfennell/foodmemory/internal/web"
)

func main() {
	// 1. Define and parse command-line flags
	flags := pflag.NewFlagSet("foodmemory", pflag.ExitOnError)
	configFile := flags.String("config", "", "Path to a YAML config file")
	flags.String("database-path", "foodmemory.db", "Path to the SQLite database file")
	flags.String("listen", ":8080", "HTTP listen address")
	flags.String("places-api-key", "", "Google Places API key (empty disables enrichment)")
	flags.String("location-bias", "Orange County, CA", "Default location bias for Places lookups")
	flags.Parse(os.Args[1:])

	// 2. Load the layered configuration
	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 3. Open the database
	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("Database opened successfully: %s", cfg.DatabasePath)

	// 4. Wire the logbook, with Places enrichment when a key is configured
	var enricher logbook.Enricher
	if cfg.PlacesAPIKey != "" {
		enricher = places.New(cfg.PlacesAPIKey, cfg.LocationBias)
	} else {
		log.Printf("No Places API key configured, enrichment disabled")
	}
	lb := logbook.New(db, enricher)

	// 5. Serve
	server := web.NewServer(db, lb)
	log.Printf("Listening on %s", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, server); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
