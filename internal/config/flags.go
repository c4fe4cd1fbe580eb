package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/credstore/internal/flagx"
)

// parseFlags overlays command-line flags on cfg.
//
//	-d string     PostgreSQL DSN
//	-b string     storage backend (postgres | memory)
//	-m int        minimum password length
//	-p string     password hasher (bcrypt | argon2id)
//	-k int        bcrypt cost
//	-n int        session token size in random bytes
//	-t duration   database connect timeout (e.g. 5s)
//	-l string     log level
//
// Only these flags are looked at; anything else on the command line (for
// example -c) belongs to another parser.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-b", "-m", "-p", "-k", "-n", "-t", "-l"})

	fs := flag.NewFlagSet("credstore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.StorageBackend, "b", cfg.StorageBackend, "storage backend")
	fs.IntVar(&cfg.PasswordMinLength, "m", cfg.PasswordMinLength, "minimum password length")
	fs.StringVar(&cfg.PasswordHasher, "p", cfg.PasswordHasher, "password hasher")
	fs.IntVar(&cfg.BcryptCost, "k", cfg.BcryptCost, "bcrypt cost")
	fs.IntVar(&cfg.SessionTokenBytes, "n", cfg.SessionTokenBytes, "session token size (bytes)")
	fs.DurationVar(&cfg.ConnectTimeout, "t", cfg.ConnectTimeout, "database connect timeout")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	return fs.Parse(args)
}
