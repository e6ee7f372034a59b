package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/devflow-project/devflow/internal/auth"
	"github.com/devflow-project/devflow/internal/config"
	"github.com/devflow-project/devflow/internal/httpapi"
	"github.com/devflow-project/devflow/internal/obs"
	"github.com/devflow-project/devflow/internal/store/pg"
	"github.com/devflow-project/devflow/internal/workspace"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AutoMigrate {
		if err := pg.RunMigrations(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	store, err := pg.New(db)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	hasher := auth.NewArgon2Hasher(auth.DefaultArgon2Params)
	codec, err := auth.NewHMACCodec(cfg.AuthSecret)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	sessions, err := auth.NewService(store, store, hasher, codec,
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	workspaces, err := workspace.NewService(store)
	if err != nil {
		log.Fatalf("workspace service: %v", err)
	}
	guard, err := auth.NewGuard(workspaces)
	if err != nil {
		log.Fatalf("guard: %v", err)
	}

	probe := httpapi.ReadyProbe{DB: db}
	api := httpapi.New(sessions, workspaces, guard, probe, version,
		httpapi.WithSecureCookies(cfg.SecureCookies),
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ops := httpapi.NewOpsGRPC(probe, version)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("grpc listen: %v", err)
	}

	log.Printf("Starting devflow-api %s on %s (grpc %s)", version, cfg.Addr, cfg.GRPCAddr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	go func() {
		if err := ops.Serve(ctx, grpcLis); err != nil {
			log.Printf("grpc serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	ops.Stop()
	cancel()
	_ = db.Close()
	log.Println("Stopped")
}
