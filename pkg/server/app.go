// Package server wires the stores, runtime and programs into a long lived
// app.App.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	v3 "go.etcd.io/etcd/client/v3"

	"github.com/code-payments/auction-house-server/pkg/app"
	"github.com/code-payments/auction-house-server/pkg/auctioneer"
	"github.com/code-payments/auction-house-server/pkg/auctionhouse"
	"github.com/code-payments/auction-house-server/pkg/data/account"
	"github.com/code-payments/auction-house-server/pkg/data/receipt"
	"github.com/code-payments/auction-house-server/pkg/etcd"
	"github.com/code-payments/auction-house-server/pkg/netutil"
	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/server/http"

	account_memory "github.com/code-payments/auction-house-server/pkg/data/account/memory"
	account_postgres "github.com/code-payments/auction-house-server/pkg/data/account/postgres"
	pg "github.com/code-payments/auction-house-server/pkg/database/postgres"
	receipt_memory "github.com/code-payments/auction-house-server/pkg/data/receipt/memory"
	receipt_postgres "github.com/code-payments/auction-house-server/pkg/data/receipt/postgres"
	lock_etcd "github.com/code-payments/auction-house-server/pkg/lock/etcd"
)

const (
	defaultEtcdDialTimeout = 5 * time.Second
	defaultLockRoot        = "/auction-house/locks"
	defaultLockTTL         = 10 * time.Second
	defaultInstanceRoot    = "/auction-house/instances"
	defaultInstanceTTL     = 10 * time.Second
)

// Config is the app specific configuration, read from the "app" section
type Config struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Genesis  GenesisConfig  `mapstructure:"genesis"`
}

// PostgresConfig selects the postgres backed stores. When Host is empty, the
// app keeps all state in memory.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	DbName   string `mapstructure:"db_name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	AwsIam   bool   `mapstructure:"aws_iam"`

	MaxOpenConnections int `mapstructure:"max_open_connections"`
	MaxIdleConnections int `mapstructure:"max_idle_connections"`
}

// EtcdConfig enables cross process account locking. When Endpoints is empty,
// only local locks are used.
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	LockRoot string        `mapstructure:"lock_root"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`

	InstanceRoot string        `mapstructure:"instance_root"`
	InstanceTTL  time.Duration `mapstructure:"instance_ttl"`
}

// GenesisConfig seeds accounts at startup. Seeding is skipped for accounts
// that already exist.
type GenesisConfig struct {
	Wallets []GenesisWallet `mapstructure:"wallets"`
	Mints   []GenesisMint   `mapstructure:"mints"`
}

type GenesisWallet struct {
	Address  string `mapstructure:"address"`
	Lamports uint64 `mapstructure:"lamports"`
}

type GenesisMint struct {
	Address   string          `mapstructure:"address"`
	Authority string          `mapstructure:"authority"`
	Decimals  uint8           `mapstructure:"decimals"`
	Holders   []GenesisHolder `mapstructure:"holders"`
}

// GenesisHolder is funded through its associated token account
type GenesisHolder struct {
	Owner  string `mapstructure:"owner"`
	Amount uint64 `mapstructure:"amount"`
}

// App serves the auction house over HTTP
type App struct {
	log  *logrus.Entry
	conf Config

	db           *sql.DB
	etcdClient   *v3.Client
	lockManager  *lock_etcd.LockManager
	registration *etcd.Registration

	runtime  *runtime.Runtime
	receipts receipt.Store
	recorder *auctionhouse.ReceiptRecorder

	stopOnce   sync.Once
	shutdownCh chan struct{}
}

func NewApp() *App {
	return &App{
		log:        logrus.StandardLogger().WithField("type", "server/App"),
		shutdownCh: make(chan struct{}),
	}
}

// DecodeConfig decodes the app section of the base configuration
func DecodeConfig(config app.Config) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &conf,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(config)); err != nil {
		return nil, errors.Wrap(err, "invalid app config")
	}

	if conf.Etcd.DialTimeout == 0 {
		conf.Etcd.DialTimeout = defaultEtcdDialTimeout
	}
	if len(conf.Etcd.LockRoot) == 0 {
		conf.Etcd.LockRoot = defaultLockRoot
	}
	if conf.Etcd.LockTTL == 0 {
		conf.Etcd.LockTTL = defaultLockTTL
	}
	if len(conf.Etcd.InstanceRoot) == 0 {
		conf.Etcd.InstanceRoot = defaultInstanceRoot
	}
	if conf.Etcd.InstanceTTL == 0 {
		conf.Etcd.InstanceTTL = defaultInstanceTTL
	}

	return &conf, nil
}

// Init implements app.App.Init
func (a *App) Init(config app.Config, _ *newrelic.Application) error {
	conf, err := DecodeConfig(config)
	if err != nil {
		return err
	}
	a.conf = *conf

	accounts, receipts, err := a.initStores()
	if err != nil {
		a.Stop()
		return err
	}
	a.receipts = receipts

	var opts []runtime.Option
	if len(a.conf.Etcd.Endpoints) > 0 {
		if err := a.initEtcd(); err != nil {
			a.Stop()
			return err
		}
		opts = append(opts, runtime.WithLockManager(a.lockManager))
	}

	a.runtime = runtime.New(accounts, runtime.WithEnvConfigs(), opts...)
	err = a.runtime.Register(
		auctionhouse.NewProgram(auctionhouse.WithEnvConfigs()),
		auctioneer.NewProgram(),
	)
	if err != nil {
		a.Stop()
		return errors.Wrap(err, "error registering programs")
	}

	if err := a.applyGenesis(context.Background()); err != nil {
		a.Stop()
		return err
	}

	a.recorder = auctionhouse.NewReceiptRecorder(receipts, auctionhouse.WithEnvConfigs())
	a.recorder.Attach(a.runtime)

	return nil
}

func (a *App) initStores() (account.Store, receipt.Store, error) {
	pgConf := a.conf.Postgres
	if len(pgConf.Host) == 0 {
		a.log.Warn("no postgres host configured, keeping state in memory")
		return account_memory.New(), receipt_memory.New(), nil
	}

	var err error
	if pgConf.AwsIam {
		awsConfig, awsErr := external.LoadDefaultAWSConfig()
		if awsErr != nil {
			return nil, nil, errors.Wrap(awsErr, "error loading aws config")
		}
		a.db, err = pg.NewWithAwsIam(pgConf.User, pgConf.Host, pgConf.Port, pgConf.DbName, awsConfig)
	} else {
		a.db, err = pg.NewWithUsernameAndPassword(pgConf.User, pgConf.Password, pgConf.Host, pgConf.Port, pgConf.DbName)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "error connecting to postgres")
	}

	if pgConf.MaxOpenConnections > 0 {
		a.db.SetMaxOpenConns(pgConf.MaxOpenConnections)
	}
	if pgConf.MaxIdleConnections > 0 {
		a.db.SetMaxIdleConns(pgConf.MaxIdleConnections)
	}

	return account_postgres.New(a.db), receipt_postgres.New(a.db), nil
}

func (a *App) initEtcd() error {
	etcdConf := a.conf.Etcd

	client, err := v3.New(v3.Config{
		Endpoints:   etcdConf.Endpoints,
		DialTimeout: etcdConf.DialTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "error connecting to etcd")
	}
	a.etcdClient = client

	instance := fmt.Sprintf("%s:%d", netutil.GetOutboundIP(), os.Getpid())
	a.log = a.log.WithField("instance", instance)

	a.lockManager, err = lock_etcd.NewLockManager(client, etcdConf.LockRoot, etcdConf.LockTTL, instance)
	if err != nil {
		return errors.Wrap(err, "error creating lock manager")
	}

	a.registration, err = etcd.Register(
		client,
		path.Join(etcdConf.InstanceRoot, instance),
		time.Now().UTC().Format(time.RFC3339),
		etcdConf.InstanceTTL,
	)
	if err != nil {
		return errors.Wrap(err, "error registering instance")
	}

	return nil
}

func (a *App) applyGenesis(ctx context.Context) error {
	if len(a.conf.Genesis.Wallets) == 0 && len(a.conf.Genesis.Mints) == 0 {
		return nil
	}

	genesis, err := buildGenesis(a.conf.Genesis, a.runtime.Rent(ctx))
	if err != nil {
		return err
	}

	err = genesis.Commit(ctx, a.runtime.Accounts())
	if errors.Is(err, account.ErrStaleAccountState) {
		a.log.Info("genesis accounts already exist, skipping")
		return nil
	} else if err != nil {
		return err
	}

	a.log.WithFields(logrus.Fields{
		"wallets": len(a.conf.Genesis.Wallets),
		"mints":   len(a.conf.Genesis.Mints),
	}).Info("applied genesis")
	return nil
}

func buildGenesis(conf GenesisConfig, rent runtime.RentSchedule) (*runtime.Genesis, error) {
	genesis := runtime.NewGenesis(rent)

	for _, wallet := range conf.Wallets {
		address, err := decodeKey(wallet.Address)
		if err != nil {
			return nil, errors.Wrap(err, "invalid genesis wallet")
		}
		genesis.AddWallet(address, wallet.Lamports)
	}

	for _, mint := range conf.Mints {
		address, err := decodeKey(mint.Address)
		if err != nil {
			return nil, errors.Wrap(err, "invalid genesis mint")
		}
		authority, err := decodeKey(mint.Authority)
		if err != nil {
			return nil, errors.Wrap(err, "invalid genesis mint authority")
		}
		genesis.AddMint(address, authority, mint.Decimals)

		for _, holder := range mint.Holders {
			owner, err := decodeKey(holder.Owner)
			if err != nil {
				return nil, errors.Wrap(err, "invalid genesis token holder")
			}
			genesis.AddAssociatedTokenAccount(owner, address, holder.Amount)
		}
	}

	return genesis, nil
}

func decodeKey(value string) ([]byte, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, err
	}
	if len(decoded) != 32 {
		return nil, errors.Errorf("%q is not a public key", value)
	}
	return decoded, nil
}

// RegisterWithHTTP implements app.App.RegisterWithHTTP
func (a *App) RegisterWithHTTP(router gin.IRouter) {
	http.NewServer(a.runtime, a.receipts).Register(router)
}

// ShutdownChan implements app.App.ShutdownChan
func (a *App) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		close(a.shutdownCh)

		if a.recorder != nil {
			a.recorder.Close()
		}
		if a.registration != nil {
			a.registration.Close()
		}
		if a.lockManager != nil {
			a.lockManager.Close()
		}
		if a.etcdClient != nil {
			if err := a.etcdClient.Close(); err != nil {
				a.log.WithError(err).Warn("error closing etcd client")
			}
		}
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.WithError(err).Warn("error closing postgres")
			}
		}
	})
}
