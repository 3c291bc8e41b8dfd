package main

import (
	"context"
	"database/sql"
	"log"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/peerbay/peerbay-api/internal/config"
	"github.com/peerbay/peerbay-api/migrations"
)

func main() {
	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("setting dialect: %v", err)
	}

	if err := goose.UpContext(context.Background(), db, "."); err != nil {
		log.Fatalf("applying migrations: %v", err)
	}

	log.Println("migrations applied")
}
