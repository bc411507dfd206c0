package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	pg "github.com/rippl-labs/rippl-server/pkg/database/postgres"
	"github.com/rippl-labs/rippl-server/pkg/grpc/app"
	"github.com/rippl-labs/rippl-server/pkg/metrics"
	"github.com/rippl-labs/rippl-server/pkg/rippl/async"
	async_expiry "github.com/rippl-labs/rippl-server/pkg/rippl/async/expiry"
	async_relay "github.com/rippl-labs/rippl-server/pkg/rippl/async/relay"
	"github.com/rippl-labs/rippl-server/pkg/rippl/common"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data"
	"github.com/rippl-labs/rippl-server/pkg/rippl/runtime"
	"github.com/rippl-labs/rippl-server/pkg/rippl/server/rpc"
)

// Config is decoded from the app section of the process config
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`

	// UseInMemoryDatabase runs against memory stores, which lose all state on
	// restart. Intended for local development only.
	UseInMemoryDatabase bool `mapstructure:"use_in_memory_database"`

	// RelayPrivateKey is the base58 encoded ed25519 key used to sign relayed
	// events. An ephemeral key is generated when empty.
	RelayPrivateKey string `mapstructure:"relay_private_key"`

	RelayWorkerInterval  time.Duration `mapstructure:"relay_worker_interval"`
	ExpiryWorkerInterval time.Duration `mapstructure:"expiry_worker_interval"`
}

type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	DbName             string `mapstructure:"db_name"`
	SslMode            string `mapstructure:"ssl_mode"`
	MaxOpenConnections int    `mapstructure:"max_open_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
}

var defaultConfig = Config{
	Database: DatabaseConfig{
		Port:               5432,
		SslMode:            "disable",
		MaxOpenConnections: 20,
		MaxIdleConnections: 5,
	},

	RelayWorkerInterval:  time.Second,
	ExpiryWorkerInterval: time.Minute,
}

func init() {
	_ = viper.BindEnv("app.database.host", "DB_HOST")
	_ = viper.BindEnv("app.database.port", "DB_PORT")
	_ = viper.BindEnv("app.database.user", "DB_USER")
	_ = viper.BindEnv("app.database.password", "DB_PASSWORD")
	_ = viper.BindEnv("app.database.db_name", "DB_NAME")
	_ = viper.BindEnv("app.database.ssl_mode", "DB_SSL_MODE")

	_ = viper.BindEnv("app.use_in_memory_database", "USE_IN_MEMORY_DATABASE")

	_ = viper.BindEnv("app.relay_private_key", "RELAY_PRIVATE_KEY")
}

func decodeConfig(raw app.Config) (*Config, error) {
	config := defaultConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]interface{}(raw)); err != nil {
		return nil, errors.Wrap(err, "invalid app config")
	}

	if config.RelayWorkerInterval <= 0 {
		return nil, errors.New("relay worker interval must be positive")
	}
	if config.ExpiryWorkerInterval <= 0 {
		return nil, errors.New("expiry worker interval must be positive")
	}
	return &config, nil
}

type rippl struct {
	log *logrus.Entry

	rpcServer *rpc.Server

	services     []service
	servicesWg   sync.WaitGroup
	cancel       context.CancelFunc
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

type service struct {
	name     string
	service  async.Service
	interval time.Duration
}

// New returns the rippl application, serving the JSON-RPC API and running the
// relay and expiry workers
func New() app.App {
	return &rippl{
		log:        logrus.StandardLogger().WithField("type", "rippl/server"),
		shutdownCh: make(chan struct{}),
	}
}

// Init implements app.App.Init
func (a *rippl) Init(rawConfig app.Config, metricsProvider *newrelic.Application) error {
	config, err := decodeConfig(rawConfig)
	if err != nil {
		return err
	}

	var db data.DatabaseData
	if config.UseInMemoryDatabase {
		a.log.Warn("using in memory database, state will not survive a restart")
		db = data.NewTestDatabaseProvider()
	} else {
		dbConfig := &pg.Config{
			Host:               config.Database.Host,
			Port:               config.Database.Port,
			User:               config.Database.User,
			Password:           config.Database.Password,
			DbName:             config.Database.DbName,
			SslMode:            config.Database.SslMode,
			MaxOpenConnections: config.Database.MaxOpenConnections,
			MaxIdleConnections: config.Database.MaxIdleConnections,
		}
		db, err = data.NewDatabaseProvider(dbConfig)
		if err != nil {
			return errors.Wrap(err, "error connecting to database")
		}
	}

	signer, err := loadRelaySigner(config.RelayPrivateKey)
	if err != nil {
		return err
	}
	if len(config.RelayPrivateKey) == 0 {
		a.log.WithField("public_key", signer.PublicKey().ToBase58()).Warn("no relay key configured, using an ephemeral key")
	}

	processor, err := runtime.NewProcessor(db, runtime.WithEnvConfigs())
	if err != nil {
		return errors.Wrap(err, "error initializing runtime")
	}

	a.rpcServer = rpc.NewServer(db, processor, rpc.WithEnvConfigs())

	a.services = []service{
		{"relay", async_relay.New(db, signer, async_relay.WithEnvConfigs()), config.RelayWorkerInterval},
		{"expiry", async_expiry.New(db, processor, async_expiry.WithEnvConfigs()), config.ExpiryWorkerInterval},
	}

	// Workers pull the New Relic app from their context
	ctx, cancel := context.WithCancel(metrics.NewContextWithApplication(context.Background(), metricsProvider))
	a.cancel = cancel

	for _, s := range a.services {
		a.servicesWg.Add(1)
		go func(s service) {
			defer a.servicesWg.Done()

			err := s.service.Start(ctx, s.interval)
			if err != nil && err != context.Canceled {
				a.log.WithError(err).WithField("service", s.name).Warn("service terminated unexpectedly")
			}
		}(s)
	}

	return nil
}

func loadRelaySigner(privateKey string) (*common.Account, error) {
	if len(privateKey) == 0 {
		return common.NewRandomAccount()
	}

	signer, err := common.NewAccountFromPrivateKeyString(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid relay private key")
	}
	return signer, nil
}

// RegisterWithHTTP implements app.App.RegisterWithHTTP
func (a *rippl) RegisterWithHTTP(mux *http.ServeMux) {
	for path, handler := range a.rpcServer.GetHandlers() {
		mux.HandleFunc(path, handler)
	}
}

// ShutdownChan implements app.App.ShutdownChan
func (a *rippl) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop
func (a *rippl) Stop() {
	a.shutdownOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.servicesWg.Wait()

		close(a.shutdownCh)
	})
}
