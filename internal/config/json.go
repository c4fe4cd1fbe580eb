package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/credstore/internal/flagx"
	"github.com/dmitrijs2005/credstore/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Pointer fields
// distinguish "absent" from zero so a partial file only overrides what it sets.
type JsonConfig struct {
	DatabaseDSN       *string         `json:"database_dsn"`
	StorageBackend    *string         `json:"storage_backend"`
	PasswordMinLength *int            `json:"password_min_length"`
	PasswordHasher    *string         `json:"password_hasher"`
	BcryptCost        *int            `json:"bcrypt_cost"`
	SessionTokenBytes *int            `json:"session_token_bytes"`
	ConnectTimeout    *timex.Duration `json:"connect_timeout"`
	LogLevel          *string         `json:"log_level"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	setIf(&cfg.DatabaseDSN, c.DatabaseDSN)
	setIf(&cfg.StorageBackend, c.StorageBackend)
	setIf(&cfg.PasswordMinLength, c.PasswordMinLength)
	setIf(&cfg.PasswordHasher, c.PasswordHasher)
	setIf(&cfg.BcryptCost, c.BcryptCost)
	setIf(&cfg.SessionTokenBytes, c.SessionTokenBytes)
	setIf(&cfg.LogLevel, c.LogLevel)
	if c.ConnectTimeout != nil {
		cfg.ConnectTimeout = c.ConnectTimeout.Duration
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
