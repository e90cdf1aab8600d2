package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/platekit/internal/pkg/config"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("platekit-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	files, err := plan(migrationsDir, os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	if len(files) == 0 {
		log.Printf("no %s migrations in %s", os.Args[1], migrationsDir)
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	runMigrations(ctx, pool, files)
}

// plan lists the files to apply for direction: up migrations in name
// order, down migrations (*.down.sql) in reverse.
func plan(dir, direction string) ([]string, error) {
	all, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(all)

	var files []string
	switch direction {
	case "up":
		for _, f := range all {
			if !strings.HasSuffix(f, ".down.sql") {
				files = append(files, f)
			}
		}
	case "down":
		for i := len(all) - 1; i >= 0; i-- {
			if strings.HasSuffix(all[i], ".down.sql") {
				files = append(files, all[i])
			}
		}
	default:
		return nil, fmt.Errorf("unknown command: %s", direction)
	}
	return files, nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		_, err = pool.Exec(ctx, string(data))
		if err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Printf("%d migrations applied", len(files))
}
