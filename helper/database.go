package helper

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the postgres connection settings.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the connection settings from the environment.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	config := &DatabaseConfiguration{
		Host:     GetEnv("NEWSGRAPH_DB_HOST"),
		Port:     GetEnv("NEWSGRAPH_DB_PORT"),
		Database: GetEnv("NEWSGRAPH_DB_DATABASE"),
		Username: GetEnv("NEWSGRAPH_DB_USER"),
		Password: GetEnv("NEWSGRAPH_DB_PASSWORD"),
		Schema:   GetEnvString("NEWSGRAPH_DB_SCHEMA", "public"),
		SSLMode:  GetEnvString("NEWSGRAPH_DB_SSLMODE", "disable"),
	}

	if config.Host == "" || config.Port == "" || config.Database == "" || config.Username == "" {
		return nil, NewError("database configuration", fmt.Errorf("host, port, database and user must be set"))
	}

	return config, nil
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfiguration) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:   c.Database,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	if c.Schema != "" {
		q.Set("search_path", c.Schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Database wraps a connection pool together with its logger.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings a connection pool.
// The ping is retried for a few seconds to tolerate a database that is still starting.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, NewError("database configuration", fmt.Errorf("configuration is nil"))
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	instance, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, NewError("open database", err)
	}
	instance.SetMaxOpenConns(25)
	instance.SetMaxIdleConns(5)
	instance.SetConnMaxLifetime(30 * time.Minute)

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = instance.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}
		if attempt >= 5 {
			_ = instance.Close()
			return nil, NewError("ping database", err)
		}
		logger.Warn("Database not reachable yet, retrying", slog.Int("attempt", attempt), slog.String("error", err.Error()))
		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger,
	}, nil
}

// NewTestDatabase opens a database for tests and panics on failure.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := NewLogger(io.Discard, slog.LevelDebug)
	db, err := NewDatabase("test", config, logger)
	if err != nil {
		panic(err)
	}
	return db
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
