package pg

import (
	"database/sql"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	// Registers the New Relic instrumented pgx driver as "nrpgx"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

const driverName = "nrpgx"

// NewWithAwsIam opens a pool that authenticates with a short lived RDS IAM
// token instead of a password. IAM auth requires a provisioned cluster.
//
// Reference: https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/UsingWithRDS.IAMDBAuth.Connecting.Go.html
func NewWithAwsIam(username, hostname, port, dbname string, config aws.Config) (*sql.DB, error) {
	client := rds.New(config)

	token, err := rdsutils.BuildAuthToken(net.JoinHostPort(hostname, port), client.Region, username, client.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build rds auth token")
	}

	return open(fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s", hostname, port, username, token, dbname))
}

// NewWithUsernameAndPassword opens a pool using password authentication.
func NewWithUsernameAndPassword(username, password, hostname, port, dbname string) (*sql.DB, error) {
	// TODO: enable sslmode=verify-full once the RDS CA bundle ships with the image
	return open(fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", username, password, net.JoinHostPort(hostname, port), dbname))
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}
