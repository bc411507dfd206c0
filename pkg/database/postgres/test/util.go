// Package test starts disposable postgres containers for store tests.
package test

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib" //nolint:revive

	"github.com/rippl-labs/rippl-server/pkg/retry"
	"github.com/rippl-labs/rippl-server/pkg/retry/backoff"
)

const (
	image         = "postgres"
	imageTag      = "13.4"
	containerTTL  = 2 * time.Minute
	pingAttempts  = 60
	pingInterval  = 500 * time.Millisecond
	containerPort = "5432/tcp"

	user     = "rippl"
	password = "rippl-test"
	dbname   = "rippl_test"
)

// StartPostgresDB runs a postgres container in pool and connects to it once it
// accepts connections. closeFunc closes the connection and removes the
// container. The container also expires on its own after containerTTL in case
// closeFunc never runs.
func StartPostgresDB(pool *dockertest.Pool) (db *sql.DB, closeFunc func(), err error) {
	closeFunc = func() {}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: image,
		Tag:        imageTag,
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + dbname,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, closeFunc, errors.Wrap(err, "failed to start postgres container")
	}

	// Expire never returns an error
	_ = resource.Expire(uint(containerTTL.Seconds()))

	closeFunc = func() {
		if db != nil {
			db.Close()
		}
		if err := pool.Purge(resource); err != nil {
			logrus.StandardLogger().WithError(err).Warn("failed to purge postgres container")
		}
	}

	url := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		user,
		password,
		resource.GetHostPort(containerPort),
		dbname,
	)

	_, err = retry.Retry(
		func() error {
			if db == nil {
				if db, err = sql.Open("pgx", url); err != nil {
					return err
				}
			}
			return db.Ping()
		},
		retry.Limit(pingAttempts),
		retry.Backoff(backoff.Constant(pingInterval), pingInterval),
	)
	if err != nil {
		closeFunc()
		return nil, func() {}, errors.Wrap(err, "timed out waiting for postgres container")
	}

	return db, closeFunc, nil
}
