package pg

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

type Config struct {
	User               string
	Host               string
	Password           string
	Port               int
	DbName             string
	SslMode            string
	MaxOpenConnections int
	MaxIdleConnections int
}

// Validate checks the config has enough information to open a connection
func (c *Config) Validate() error {
	if len(c.Host) == 0 {
		return errors.New("host is required")
	}
	if c.Port <= 0 {
		return errors.New("port is required")
	}
	if len(c.User) == 0 {
		return errors.New("user is required")
	}
	if len(c.DbName) == 0 {
		return errors.New("db name is required")
	}
	return nil
}

// NewWithConfig opens a DB connection pool using the provided config
func NewWithConfig(config *Config) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid postgres config")
	}

	sslMode := config.SslMode
	if len(sslMode) == 0 {
		sslMode = "disable"
	}

	db, err := open(fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		config.User, config.Password, config.Host, config.Port, config.DbName, sslMode,
	))
	if err != nil {
		return nil, err
	}

	if config.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(config.MaxOpenConnections)
	}
	if config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(config.MaxIdleConnections)
	}

	return db, nil
}

// Get a DB connection pool using username/password credentials
func NewWithUsernameAndPassword(username, password, hostname, port, dbname string) (*sql.DB, error) {
	return open(fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		username, password, hostname, port, dbname,
	))
}

func open(dsn string) (*sql.DB, error) {
	// Try to open a connection pool using the "pgx" driver (instead of "postgres")
	db, err := sql.Open("nrpgx", dsn)
	if err != nil {
		return nil, err
	}

	// Check if the connection was successful
	err = db.Ping()
	if err != nil {
		return nil, err
	}

	return db, nil
}
