package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"keyvault.org/internal/audit"
	"keyvault.org/internal/auth"
	"keyvault.org/internal/httpapi"
	"keyvault.org/internal/obs"
	"keyvault.org/internal/store/pg"
	"keyvault.org/internal/vault"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	masterHex := os.Getenv("KEYVAULT_MASTER_KEY")
	if masterHex == "" {
		log.Fatal("KEYVAULT_MASTER_KEY is required (hex, at least 32 bytes)")
	}
	master, err := hex.DecodeString(masterHex)
	if err != nil {
		log.Fatalf("decode master key: %v", err)
	}
	cipher, err := vault.NewSecretboxCipher(master)
	if err != nil {
		log.Fatalf("init cipher: %v", err)
	}

	var (
		vaultStore vault.Store
		authStore  auth.Store
		auditStore audit.Store
		probe      httpapi.ReadyProbe
	)
	if dsn := os.Getenv("KEYVAULT_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		vaultStore = pgStore
		authStore = auth.NewPGStore(pgStore.DB())
		auditStore = pgStore.Audit()
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Print("KEYVAULT_PG_DSN not set, using in-memory stores")
		vaultStore = vault.NewInMemory()
		authStore = auth.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	recorder := audit.NewRecorder(auditStore)
	vaultSvc, err := vault.NewService(vaultStore, cipher, recorder)
	if err != nil {
		log.Fatalf("init vault service: %v", err)
	}
	tokenSvc, err := auth.NewTokenService(authStore)
	if err != nil {
		log.Fatalf("init token service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		ReadyProbe: probe,
		Version:    version,
		Resolver:   auth.NewResolver(authStore),
		Vault:      vaultSvc,
		Tokens:     tokenSvc,
		Recorder:   recorder,
		RateBurst:  envInt("KEYVAULT_RATE_BURST", 50),
		RatePerSec: envInt("KEYVAULT_RATE_PER_SEC", 25),
	})

	addr := os.Getenv("KEYVAULT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting keyvault-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Fatalf("%s must be a positive integer", name)
	}
	return v
}
