package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/rawblock/signalengine/internal/api"
	"github.com/rawblock/signalengine/internal/boxes"
	"github.com/rawblock/signalengine/internal/catalog"
	"github.com/rawblock/signalengine/internal/dispatcher"
	"github.com/rawblock/signalengine/internal/forwarder"
	"github.com/rawblock/signalengine/internal/ingest"
	"github.com/rawblock/signalengine/internal/store"
)

func main() {
	log.Println("Starting RawBlock Box-Pattern Signal Engine...")
	log.Println("Building path catalog...")

	// ─── Required Environment Variables ─────────────────────────────────
	// All credentials MUST come from environment variables. No fallback
	// defaults for security-sensitive values.
	// ────────────────────────────────────────────────────────────────────

	storeURL := requireEnv("STORE_URL")
	_ = requireEnv("STORE_SERVICE_KEY") // accepted per the store's config contract; unused on the direct Postgres path

	producerHost := requireEnv("PRODUCER_HOST")
	producerToken := requireEnv("PRODUCER_TOKEN")

	cat := catalog.Build(catalog.BOXES, catalog.StartingPoints)
	log.Printf("Catalog built: %d paths", len(cat.Paths))

	registry := boxes.NewRegistry(nil)

	dbConn, err := store.Connect(storeURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to PostgreSQL, continuing without persisting signals. Error: %v", err)
	} else {
		defer dbConn.Close()
		if err := dbConn.InitSchema(); err != nil {
			log.Printf("Warning: DB schema init failed: %v", err)
		}
	}

	fwd := forwarder.New(os.Getenv("FORWARDER_BASE_URL"), os.Getenv("FORWARDER_TOKEN"))

	wsHub := api.NewHub()
	go wsHub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disp := dispatcher.New(ctx, cat, registry, dbConn, fwd, wsHub)

	client := ingest.New(ingest.Config{Host: producerHost, Token: producerToken})
	client.Handler = disp.Dispatch

	// Process supervisor: restart the producer connection on any
	// error, with a small fixed delay to avoid a hot loop against a
	// refusing peer. This is connection supervision, not write retry.
	go func() {
		for {
			if err := client.Run(ctx); err != nil {
				log.Printf("[Ingest] connection error: %v", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()

	r := api.SetupRouter(cat, disp, fwd, wsHub)

	port := getEnvOrDefault("PORT", "3003")

	log.Printf("Engine running on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// requireEnv reads a required environment variable and exits if it is not set.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set.", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
