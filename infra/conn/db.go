package conn

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

// ConnectDatabase opens the shared SQLite database used for orders and settings
func (db *DB) ConnectDatabase(dbPath string) error {
	if dbPath == "" {
		dbPath = "data/cardsave.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=20000", dbPath)

	var err error
	var database *sql.DB

	for attempts := 1; attempts <= 5; attempts++ {
		database, err = sql.Open("sqlite3", connStr)
		if err != nil {
			log.Printf("Attempt %d: Failed to open DB connection: %v", attempts, err)
			time.Sleep(2 * time.Second)
			continue
		}

		database.SetMaxOpenConns(10)
		database.SetMaxIdleConns(5)
		database.SetConnMaxLifetime(0)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = database.PingContext(ctx)
		cancel()

		if err == nil {
			db.DB = database
			return nil
		}

		log.Printf("Attempt %d: Failed to ping DB: %v", attempts, err)
		database.Close()
		time.Sleep(2 * time.Second)
	}

	return fmt.Errorf("failed to connect to DB after 5 attempts: %w", err)
}

// CloseDatabase closes the connection between the app and the database
func (db *DB) CloseDatabase() {
	if db.DB == nil {
		return
	}
	if err := db.DB.Close(); err != nil {
		log.Println("Failed to close connection from the database:", err.Error())
	} else {
		log.Println("DB Connection Closed")
	}
}
