package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/credstore/internal/common"
	"github.com/dmitrijs2005/credstore/internal/config"
	"github.com/dmitrijs2005/credstore/internal/credentials"
	"github.com/dmitrijs2005/credstore/internal/cryptox"
	"github.com/dmitrijs2005/credstore/internal/dbx"
	"github.com/dmitrijs2005/credstore/internal/logging"
	"github.com/dmitrijs2005/credstore/internal/models"
	"github.com/dmitrijs2005/credstore/internal/random"
	"github.com/dmitrijs2005/credstore/internal/repositories/repomanager"
)

// CredentialStore is the part of credentials.Store the client uses.
type CredentialStore interface {
	Register(ctx context.Context, userName, plaintext string) (*models.User, error)
	LogIn(ctx context.Context, userName, plaintext string) (*models.User, error)
	LogOut(ctx context.Context, u *models.User) error
	FindBySessionToken(ctx context.Context, token string) (*models.User, error)
	ChangePassword(ctx context.Context, u *models.User, plaintext string) error
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	store  CredentialStore
	reader *bufio.Reader
	out    io.Writer

	userName     string
	sessionToken string
}

// openDatabase is a seam for dbx.Open.
var openDatabase = dbx.Open

// NewApp opens storage for the configured backend, applies migrations and
// builds the credential store.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	var (
		db *sql.DB
		rm repomanager.RepositoryManager
	)

	switch c.StorageBackend {
	case config.BackendMemory:
		rm = repomanager.NewMemoryRepositoryManager()
	default:
		var err error
		db, err = openDatabase(ctx, c.DatabaseDSN, c.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm = repomanager.NewPostgresRepositoryManager()
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	hasher, err := cryptox.NewHasher(c)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	store := credentials.NewStore(db, rm, hasher, random.NewCryptoSource(c.SessionTokenBytes), c, logger)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		store:  store,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

// Close releases the database handle, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Run starts the REPL on stdin and blocks until the user exits or stdin
// is closed.
func (a *App) Run(ctx context.Context) {
	a.logger.Info(ctx, "Starting app...", "backend", a.config.StorageBackend)
	printlnFn("Welcome to credstore CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.sessionToken != ""
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// report prints a user-facing description of err. Failures that are not the
// user's to fix are logged and shown as a generic message.
func (a *App) report(ctx context.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorAlreadyExists):
		fmt.Fprintln(a.out, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		fmt.Fprintln(a.out, "Invalid username or password")
	default:
		a.logger.Error(ctx, "command failed", "error", err)
		fmt.Fprintln(a.out, "Something went wrong, see the log for details")
	}
}
