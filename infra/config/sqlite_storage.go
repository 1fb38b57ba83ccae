package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage handles persistent storage of gateway settings
type SQLiteStorage struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// retryOperation executes a database operation with retry logic for SQLITE_BUSY errors
func (s *SQLiteStorage) retryOperation(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "SQLITE_BUSY") || strings.Contains(err.Error(), "database is locked") {
			lastErr = err
			if attempt < maxRetries {
				// Exponential backoff: 10ms, 20ms, 40ms, 80ms
				backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
				log.Printf("SQLite busy, retrying in %v (attempt %d/%d)", backoff, attempt+1, maxRetries+1)
				time.Sleep(backoff)
				continue
			}
		} else {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

// NewSQLiteStorage creates a new SQLite storage instance optimized for multiple processes
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// SQLite connection string with multi-process optimizations
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	storage := &SQLiteStorage{
		db:   db,
		path: dbPath,
	}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := storage.optimizeForMultiProcess(); err != nil {
		log.Printf("Warning: Failed to apply optimizations: %v", err)
	}

	return storage, nil
}

// initSchema creates the necessary tables
func (s *SQLiteStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS gateway_settings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		option_key TEXT NOT NULL UNIQUE,
		option_value TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_gateway_settings_key ON gateway_settings(option_key);

	-- Trigger to update updated_at column
	CREATE TRIGGER IF NOT EXISTS update_gateway_settings_updated_at
		AFTER UPDATE ON gateway_settings
	BEGIN
		UPDATE gateway_settings SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
	END;
	`

	_, err := s.db.Exec(query)
	return err
}

// optimizeForMultiProcess applies SQLite optimizations for multi-process access
func (s *SQLiteStorage) optimizeForMultiProcess() error {
	optimizations := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA cache_size = 1000;",
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA temp_store = memory;",
	}

	for _, pragma := range optimizations {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return nil
}

// SaveOption stores or updates a single setting
func (s *SQLiteStorage) SaveOption(key, value string) error {
	if key == "" {
		return fmt.Errorf("option key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		query := `
			INSERT INTO gateway_settings (option_key, option_value)
			VALUES (?, ?)
			ON CONFLICT(option_key) DO UPDATE SET option_value = excluded.option_value
		`
		_, err := s.db.Exec(query, key, value)
		return err
	}, 4)
}

// LoadOption retrieves a single setting by key
func (s *SQLiteStorage) LoadOption(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT option_value FROM gateway_settings WHERE option_key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("option %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load option %q: %w", key, err)
	}
	return value, nil
}

// LoadAllOptions returns every stored setting
func (s *SQLiteStorage) LoadAllOptions() (map[string]string, error) {
	rows, err := s.db.Query("SELECT option_key, option_value FROM gateway_settings")
	if err != nil {
		return nil, fmt.Errorf("failed to load options: %w", err)
	}
	defer rows.Close()

	options := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan option row: %w", err)
		}
		options[key] = value
	}

	return options, rows.Err()
}

// DeleteOption removes a setting by key
func (s *SQLiteStorage) DeleteOption(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		_, err := s.db.Exec("DELETE FROM gateway_settings WHERE option_key = ?", key)
		return err
	}, 4)
}

// GetStats returns storage statistics
func (s *SQLiteStorage) GetStats() (map[string]any, error) {
	stats := make(map[string]any)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM gateway_settings").Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count settings: %w", err)
	}
	stats["total_settings"] = count
	stats["database_path"] = s.path

	if info, err := os.Stat(s.path); err == nil {
		stats["database_size_bytes"] = info.Size()
	}

	return stats, nil
}

// Close closes the underlying database handle
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
