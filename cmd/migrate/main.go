// Command migrate applies the embedded schema migrations.
//
// Usage:
//
//	migrate [up|down|status]
//
// The target database comes from DEVFLOW_PG_DSN.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/devflow-project/devflow/internal/config"
	"github.com/devflow-project/devflow/internal/store/pg"
)

func main() {
	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch command {
	case "up":
		err = pg.RunMigrations(ctx, db)
	case "down":
		err = pg.RollbackMigration(ctx, db)
	case "status":
		err = pg.MigrationStatus(ctx, db)
	default:
		log.Printf("unknown command %q (want up, down or status)", command)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}
