package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Well-known setting keys for the Cardsave gateway.
const (
	OptionMerchantID  = "cardsave_merchant_id"
	OptionPassword    = "cardsave_password"
	OptionEnvironment = "cardsave_environment"
)

// SettingsStore manages gateway settings keyed by string ids.
//
// Lookup order is environment variable first (the key upper-cased), then the
// in-memory cache backed by SQLite, then the caller-supplied default. The
// environment override keeps credentials out of the database in deployments
// that inject them at boot.
type SettingsStore struct {
	options map[string]string
	storage *SQLiteStorage
	mu      sync.RWMutex
}

// NewSettingsStore creates a settings store. A nil storage falls back to
// memory-only mode.
func NewSettingsStore(storage *SQLiteStorage) *SettingsStore {
	store := &SettingsStore{
		options: make(map[string]string),
		storage: storage,
	}

	if storage != nil {
		if err := store.loadFromStorage(); err != nil {
			log.Printf("Warning: Failed to load settings from storage: %v", err)
		}
	}

	return store
}

// loadFromStorage primes the in-memory cache from SQLite
func (s *SettingsStore) loadFromStorage() error {
	options, err := s.storage.LoadAllOptions()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range options {
		s.options[k] = v
	}

	return nil
}

// GetOption returns the value for a setting key, or the default when unset
func (s *SettingsStore) GetOption(key, defaultValue string) string {
	if key == "" {
		return defaultValue
	}

	// Environment overrides stored values
	if value := GetEnv(strings.ToUpper(key), ""); value != "" {
		return value
	}

	s.mu.RLock()
	value, exists := s.options[key]
	s.mu.RUnlock()

	if !exists && s.storage != nil {
		stored, err := s.storage.LoadOption(key)
		if err == nil {
			s.mu.Lock()
			s.options[key] = stored
			s.mu.Unlock()
			return stored
		}
	}

	if !exists || value == "" {
		return defaultValue
	}

	return value
}

// SetOption stores a setting value
func (s *SettingsStore) SetOption(key, value string) error {
	if key == "" {
		return fmt.Errorf("option key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.SaveOption(key, value); err != nil {
			return fmt.Errorf("failed to persist option %q: %w", key, err)
		}
	}

	s.options[key] = value
	return nil
}

// DeleteOption removes a setting
func (s *SettingsStore) DeleteOption(key string) error {
	if key == "" {
		return fmt.Errorf("option key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.DeleteOption(key); err != nil {
			return fmt.Errorf("failed to delete option %q: %w", key, err)
		}
	}

	delete(s.options, key)
	return nil
}

// GatewayConfig assembles the provider configuration map expected by
// provider.PaymentProvider implementations.
func (s *SettingsStore) GatewayConfig() map[string]string {
	cfg := map[string]string{
		"merchantId":  s.GetOption(OptionMerchantID, ""),
		"password":    s.GetOption(OptionPassword, ""),
		"environment": s.GetOption(OptionEnvironment, "production"),
	}

	if GetBoolEnv("GATEWAY_INSECURE_SKIP_VERIFY", false) {
		cfg["insecureSkipVerify"] = "true"
	}

	return cfg
}

// GetStats returns settings and storage statistics
func (s *SettingsStore) GetStats() (map[string]any, error) {
	stats := make(map[string]any)

	s.mu.RLock()
	stats["memory_options"] = len(s.options)
	s.mu.RUnlock()

	if s.storage != nil {
		storageStats, err := s.storage.GetStats()
		if err != nil {
			stats["storage_error"] = err.Error()
		} else {
			stats["storage"] = storageStats
		}
	} else {
		stats["storage"] = "not_available"
	}

	return stats, nil
}
