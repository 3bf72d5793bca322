package main

import (
	"database/sql"
	"os"

	"ccox_dashboard/internal/logger"
	"ccox_dashboard/internal/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), false)
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Fatal("open database", "error", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal("set dialect", "error", err)
	}

	if err := goose.Up(db, "."); err != nil {
		logger.Fatal("apply migrations", "error", err)
	}

	logger.Info("migrations applied")
}
