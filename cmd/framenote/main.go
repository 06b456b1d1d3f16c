package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framenote/framenote/internal/database"
	"github.com/framenote/framenote/internal/geoip"
	"github.com/framenote/framenote/internal/server"
	"github.com/framenote/framenote/internal/storage"
	"github.com/framenote/framenote/internal/suggest"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}

	port := getEnv("PORT", "8080")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(databaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")

	store, err := storage.New(ctx, storage.Config{
		Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:9000"),
		PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
		Bucket:         getEnv("S3_BUCKET", "framenote"),
		AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		SecretKey:      os.Getenv("S3_SECRET_KEY"),
		Region:         getEnv("S3_REGION", "eu-central-1"),
	})
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("storage bucket check failed: %v", err)
	}
	log.Println("storage bucket ready")

	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	var geoResolver *geoip.Resolver
	if path := os.Getenv("GEOIP_DB_PATH"); path != "" {
		geoResolver, err = geoip.New(path)
		if err != nil {
			log.Printf("geoip database unavailable, request logs stay unenriched: %v", err)
		} else {
			defer geoResolver.Close()
			log.Println("geoip database loaded")
		}
	}

	var suggester suggest.Generator
	if getEnv("AI_ENABLED", "false") == "true" {
		model := getEnv("AI_MODEL", "mistral-small-latest")
		suggester = suggest.NewClient(
			os.Getenv("AI_BASE_URL"),
			os.Getenv("AI_API_KEY"),
			model,
		)
		log.Printf("content suggestions enabled (model: %s)", model)
	}

	srv := server.New(server.Config{
		DB:        db.Pool,
		Pinger:    db,
		Storage:   store,
		JWTSecret: jwtSecret,
		BaseURL:   baseURL,
		Suggester: suggester,
		GeoIP:     geoResolver,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("framenote listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
