// Package test runs throwaway Postgres containers for store tests.
package test

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/code-payments/auction-house-server/pkg/retry"
	"github.com/code-payments/auction-house-server/pkg/retry/backoff"
)

const (
	imageName = "postgres"
	imageTag  = "10.4"

	containerAutoKill = 120 * time.Second

	user     = "localtest"
	password = "localpassword"
	dbname   = "testdb"
)

// Schema holds the DDL a store under test needs. Production migrations live
// outside this repository.
type Schema struct {
	Create string
	Drop   string
}

// StartPostgresDB starts a postgres container and returns a pool connected to
// it once it accepts connections.
func StartPostgresDB(pool *dockertest.Pool) (db *sql.DB, teardown func(), err error) {
	teardown = func() {}
	log := logrus.StandardLogger().WithField("method", "postgres/test/StartPostgresDB")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: imageName,
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
		return nil, teardown, errors.Wrap(err, "failed to start postgres")
	}
	_ = resource.Expire(uint(containerAutoKill.Seconds()))

	teardown = func() {
		if db != nil {
			_ = db.Close()
		}
		if err := pool.Purge(resource); err != nil {
			log.WithError(err).Warn("failed to purge postgres container")
		}
	}

	url := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, resource.GetHostPort("5432/tcp"), dbname)
	_, err = retry.Retry(
		func() error {
			if db == nil {
				if db, err = sql.Open("pgx", url); err != nil {
					return err
				}
			}
			return db.Ping()
		},
		retry.Limit(60),
		retry.Backoff(backoff.Constant(500*time.Millisecond), time.Second),
	)
	if err != nil {
		teardown()
		return nil, func() {}, errors.Wrap(err, "postgres never became ready")
	}

	return db, teardown, nil
}

// Main is a TestMain for postgres backed stores. It creates schema in a fresh
// container and passes the pool to bind, along with a reset func that
// recreates the tables between tests. It exits with the tests' result.
func Main(m *testing.M, schema Schema, bind func(db *sql.DB, reset func())) {
	log := logrus.StandardLogger().WithField("method", "postgres/test/Main")

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Fatal("failed to create docker pool")
	}

	db, teardown, err := StartPostgresDB(pool)
	if err != nil {
		log.WithError(err).Fatal("failed to start postgres")
	}

	code := func() int {
		defer teardown()

		if _, err := db.Exec(schema.Create); err != nil {
			log.WithError(err).Error("failed to create tables")
			return 1
		}

		bind(db, func() {
			if _, err := db.Exec(schema.Drop); err != nil {
				log.WithError(err).Fatal("failed to drop tables")
			}
			if _, err := db.Exec(schema.Create); err != nil {
				log.WithError(err).Fatal("failed to recreate tables")
			}
		})

		return m.Run()
	}()

	os.Exit(code)
}
