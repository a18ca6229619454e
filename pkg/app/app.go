package app

import (
	"context"
	"crypto/tls"
	"expvar"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	metrics_util "github.com/code-payments/auction-house-server/pkg/metrics"
	"github.com/code-payments/auction-house-server/pkg/osutil"
)

// App is a long lived application that services HTTP requests.
//
// The lifecycle of the App is tied to the process. The app gets initialized
// before the HTTP server runs, and gets stopped after the HTTP server has
// stopped serving.
type App interface {
	// Init initializes the application in a blocking fashion. When Init returns,
	// it is expected that the application is ready to start receiving requests.
	//
	// todo: Passing the New Relic app here ties every application to NR.
	Init(config Config, metricsProvider *newrelic.Application) error

	// RegisterWithHTTP provides a mechanism for the application to register
	// routes with the HTTP router.
	RegisterWithHTTP(router gin.IRouter)

	// ShutdownChan returns a channel that is closed when the application is
	// shutdown.
	//
	// If the channel is closed, the HTTP server will initiate a shutdown if it
	// has not already done so.
	ShutdownChan() <-chan struct{}

	// Stop stops the service, allowing for it to clean up any resources. When
	// Stop() returns, the process exits.
	//
	// Stop should be idempotent.
	Stop()
}

var (
	osSigCh = make(chan os.Signal, 1)
)

func init() {
	signal.Notify(osSigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	gin.SetMode(gin.ReleaseMode)
}

// LoadConfig reads the base configuration from the file at configPath, if it
// exists, and the environment
func LoadConfig(configPath string) (*BaseConfig, error) {
	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file because one hasn't been explicitly set. That is,
	// if we explicitly set a config file, and it does not exist, viper will not
	// return a ConfigFileNotFoundError, so we do it ourselves.
	if _, err := os.Stat(configPath); err == nil {
		viper.SetConfigFile(configPath)
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to check if config exists")
	}

	err := viper.ReadInConfig()
	_, isConfigNotFound := err.(viper.ConfigFileNotFoundError)
	if err != nil && !isConfigNotFound {
		return nil, errors.Wrap(err, "failed to load config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.AppName) == 0 {
		return nil, errors.New("must specify an application name")
	}

	return &config, nil
}

// Run serves app until the process is signalled, the HTTP server stops or the
// app shuts down
func Run(app App, config *BaseConfig) error {
	logger := logrus.StandardLogger().WithField("type", "app")

	metricsProvider, err := newMetricsProvider(config)
	if err != nil {
		return err
	}
	configureLogger(config, metricsProvider)

	startDebugServer(config, logger)

	ballast := allocateBallast(config)
	defer func() {
		// Touch the ballast so it stays live for the lifetime of Run
		if len(ballast) > 0 {
			ballast[0] = 1
		}
	}()

	memoryLeakCh, stopCron, err := startMemoryLeakCron(config)
	if err != nil {
		return err
	}
	defer stopCron()

	lis, err := listen(config)
	if err != nil {
		return err
	}

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		return errors.Wrap(err, "failed to initialize application")
	}

	router := NewRouter(metricsProvider, config.CorsAllowedOrigins)
	app.RegisterWithHTTP(router)

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	serverDoneCh := make(chan struct{})
	go func() {
		defer close(serverDoneCh)

		if err := server.Serve(lis); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http serve stopped")
		}
	}()

	select {
	case sig := <-osSigCh:
		logger.WithField("signal", sig.String()).Info("signal received, shutting down")
	case <-serverDoneCh:
		logger.Info("http server stopped, shutting down")
	case <-memoryLeakCh:
		logger.Info("scheduled restart, shutting down")
	case <-app.ShutdownChan():
		logger.Info("app stopped, shutting down")
	}

	return shutdown(server, app, config.ShutdownGracePeriod)
}

// shutdown stops the server then the app, both of which are idempotent
func shutdown(server *http.Server, app App, gracePeriod time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), gracePeriod)
	defer cancel()

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)

		if err := server.Shutdown(ctx); err != nil {
			logrus.StandardLogger().WithError(err).Warn("http server did not shutdown gracefully")
		}
		app.Stop()
	}()

	select {
	case <-doneCh:
		return nil
	case <-time.After(gracePeriod):
		return errors.Errorf("failed to stop the application within %v", gracePeriod)
	}
}

func newMetricsProvider(config *BaseConfig) (*newrelic.Application, error) {
	if len(config.NewRelicLicenseKey) == 0 {
		return nil, nil
	}

	nr, err := newrelic.NewApplication(
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigAppName(config.AppName),
		newrelic.ConfigLicense(config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to new relic")
	}
	return nr, nil
}

// startDebugServer serves pprof and expvar on the debug address only. Both
// packages register on http.DefaultServeMux at init, so it is replaced to
// keep them off the public listener.
func startDebugServer(config *BaseConfig, logger *logrus.Entry) {
	http.DefaultServeMux = http.NewServeMux()

	if !config.EnableExpvar && !config.EnablePprof {
		return
	}

	mux := http.NewServeMux()
	if config.EnableExpvar {
		mux.Handle("/debug/vars", expvar.Handler())
	}
	if config.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	go func() {
		for {
			if err := http.ListenAndServe(config.DebugListenAddress, mux); err != nil {
				logger.WithError(err).Warn("debug http server failed, retrying in 5s")
			}
			time.Sleep(5 * time.Second)
		}
	}()
}

// allocateBallast reserves a share of memory, capped at half, to space out
// GC cycles
func allocateBallast(config *BaseConfig) []byte {
	if !config.EnableBallast {
		return nil
	}

	capacity := min(config.BallastCapacity, 0.5)
	return make([]byte, uint64(float64(capacity)*float64(osutil.GetTotalMemory())))
}

// startMemoryLeakCron returns a channel closed on the configured schedule
func startMemoryLeakCron(config *BaseConfig) (<-chan struct{}, func(), error) {
	if !config.EnableMemoryLeakCron {
		return nil, func() {}, nil
	}

	var once sync.Once
	ch := make(chan struct{})

	job := cron.New(cron.WithLocation(time.Local))
	if _, err := job.AddFunc(config.MemoryLeakCronSchedule, func() { once.Do(func() { close(ch) }) }); err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize memory leak cron")
	}
	job.Start()

	return ch, func() { job.Stop() }, nil
}

func listen(config *BaseConfig) (net.Listener, error) {
	tlsConfig, err := loadTLSConfig(config)
	if err != nil {
		return nil, err
	}

	lis, err := net.Listen("tcp", config.ListenAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", config.ListenAddress)
	}
	if tlsConfig != nil {
		lis = tls.NewListener(lis, tlsConfig)
	}
	return lis, nil
}

func loadTLSConfig(config *BaseConfig) (*tls.Config, error) {
	if config.TLSCertificate == "" {
		return nil, nil
	}
	if config.TLSKey == "" {
		return nil, errors.New("tls key must be provided if certificate is specified")
	}

	certBytes, err := LoadFile(config.TLSCertificate)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tls certificate")
	}
	keyBytes, err := LoadFile(config.TLSKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tls key")
	}

	cert, err := tls.X509KeyPair(certBytes, keyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "invalid certificate/private key")
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

func configureLogger(config *BaseConfig, metricsProvider *newrelic.Application) {
	var formatter logrus.Formatter = &logrus.JSONFormatter{}
	if metricsProvider != nil {
		formatter = metrics_util.NewCustomNewRelicLogFormatter(metricsProvider, formatter)
	}
	logrus.SetFormatter(formatter)
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
		return
	}
	logrus.SetLevel(level)
}
