package application

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/mixdeck-go/internal/audiosession"
	"github.com/lk2023060901/mixdeck-go/internal/mixer/platform"
	zlog "github.com/lk2023060901/mixdeck-go/pkg/log"
	"github.com/lk2023060901/mixdeck-go/pkg/metrics"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
	zviper "github.com/lk2023060901/mixdeck-go/pkg/util/viper"
)

const (
	envPrefix         = "MIXDECK"
	envConfigPath     = "MIXDECK_CONFIG_FILE_PATH"
	defaultConfigPath = "./mixdeck.yaml"
)

// Config is the typed view of the configuration file.
type Config struct {
	Backend string `mapstructure:"backend"`
	Cache   struct {
		Capacity int `mapstructure:"capacity"`
	} `mapstructure:"cache"`
	Watcher struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"watcher"`
	Metrics struct {
		Listen string `mapstructure:"listen"`
	} `mapstructure:"metrics"`
	Initialize struct {
		// MaxElapsed bounds the startup retries of Initialize, 0 disables retrying.
		MaxElapsed time.Duration `mapstructure:"max-elapsed"`
	} `mapstructure:"initialize"`
}

// Application is the runtime container of the mixdeck daemon.
// It owns configuration, loggers and the audio session manager.
type Application struct {
	args    []string
	cfg     *zviper.Config
	conf    Config
	loggers map[string]*zlog.MLogger

	manager *audiosession.Manager
	watcher *audiosession.Watcher
}

// New creates a new Application reading flags from os.Args.
func New() *Application {
	return &Application{args: os.Args[1:]}
}

// NewWithArgs creates an Application with explicit command-line arguments.
func NewWithArgs(args []string) *Application {
	return &Application{args: args}
}

// Run sets the application up and serves until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	return a.Serve(ctx)
}

// Setup loads configuration and initializes logging, metrics and the
// audio session manager. The configuration file is resolved with the
// following priority:
//  1. Default: ./mixdeck.yaml (may be absent)
//  2. Env: MIXDECK_CONFIG_FILE_PATH
//  3. CLI: --config <path> or --config=<path>
func (a *Application) Setup(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if err := cfg.Unmarshal(&a.conf); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if err := a.initLogging(); err != nil {
		return err
	}
	if _, err := maxprocs.Set(maxprocs.Logger(zlog.S().Infof)); err != nil {
		zlog.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}
	metrics.Register(prometheus.DefaultRegisterer)

	backend, err := platform.New(a.conf.Backend)
	if err != nil {
		return err
	}
	opts := []audiosession.Option{audiosession.WithCacheCapacity(a.conf.Cache.Capacity)}
	if lg, ok := a.loggers["audiosession"]; ok {
		opts = append(opts, audiosession.WithLogger(lg))
	}
	a.manager = audiosession.NewManager(backend, opts...)
	a.watcher = audiosession.NewWatcher(a.manager, a.conf.Watcher.Interval)

	if err := a.initialize(ctx); err != nil {
		a.manager.Close(ctx)
		return err
	}
	return nil
}

// initialize retries retryable Initialize failures with exponential backoff.
func (a *Application) initialize(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = a.conf.Initialize.MaxElapsed
	var policy backoff.BackOff = bo
	if bo.MaxElapsedTime <= 0 {
		policy = &backoff.StopBackOff{}
	}

	return backoff.RetryNotify(func() error {
		status, err := a.manager.Initialize(ctx)
		if err != nil {
			if !merr.IsRetryableErr(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		zlog.Ctx(ctx).Info(status)
		return nil
	}, backoff.WithContext(policy, ctx), func(err error, d time.Duration) {
		zlog.Ctx(ctx).Warn("audio subsystem not ready, retrying", zap.Duration("delay", d), zap.Error(err))
	})
}

// Serve runs the device watcher and, when metrics.listen is set, the
// Prometheus endpoint. It returns after ctx is done and the manager is closed.
func (a *Application) Serve(ctx context.Context) error {
	if a.manager == nil {
		return merr.WrapErrServiceNotReady("application", "call Setup first")
	}
	defer a.manager.Close(context.WithoutCancel(ctx))

	a.watcher.OnChange(func(ctx context.Context, change audiosession.DeviceChange) {
		zlog.Ctx(ctx).Info("default render device switched",
			zlog.FieldDeviceID(change.DeviceID),
			zap.Int("sessions", len(change.Sessions)))
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.watcher.Run(gctx)
		return nil
	})
	if listen := a.conf.Metrics.Listen; listen != "" {
		lis, err := net.Listen("tcp", listen)
		if err != nil {
			return fmt.Errorf("listen metrics on %s: %w", listen, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		zlog.Info("serving metrics", zap.String("addr", lis.Addr().String()))

		g.Go(func() error {
			if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

// Manager returns the audio session manager created by Setup.
func (a *Application) Manager() *audiosession.Manager {
	return a.manager
}

// Config returns the loaded configuration, if any.
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// loadConfig resolves config file path and loads it via viper wrapper.
// A missing default file is not an error; an explicit one must exist.
func (a *Application) loadConfig() (*zviper.Config, error) {
	configPath := defaultConfigPath
	explicit := false

	if envPath := os.Getenv(envConfigPath); envPath != "" {
		configPath, explicit = envPath, true
	}

	args := a.args
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value after --config")
			}
			configPath, explicit = args[i+1], true
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			if val := strings.TrimPrefix(arg, "--config="); val != "" {
				configPath, explicit = val, true
			}
			continue
		}
	}

	cfg := zviper.New()
	cfg.SetDefault("backend", platform.Auto)
	cfg.SetDefault("cache.capacity", audiosession.DefaultCacheCapacity)
	cfg.SetDefault("watcher.interval", audiosession.DefaultWatchInterval)
	cfg.SetDefault("metrics.listen", "")
	cfg.SetDefault("initialize.max-elapsed", 30*time.Second)
	cfg.BindEnv(envPrefix)

	if explicit {
		if err := cfg.LoadFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file %q: %w", configPath, err)
		}
		return cfg, nil
	}
	if _, err := cfg.LoadFileIfExists(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", configPath, err)
	}
	return cfg, nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	return a.initModuleLoggersFromConfig()
}

// initGlobalLoggerFromEnv configures the process-wide logger based on MIXDECK_LOG_* env vars.
//
//   - MIXDECK_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - MIXDECK_LOG_LEVEL: log level (default "info").
//   - MIXDECK_LOG_STDOUT: whether to log to stdout (default false).
//   - MIXDECK_LOG_FILE_DIR: log directory.
//   - MIXDECK_LOG_FILE: log file name (empty means no file).
//   - MIXDECK_LOG_FORMAT: log format ("text" or "json", default "text").
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool("MIXDECK_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:               getenvDefault("MIXDECK_LOG_LEVEL", "info"),
		Format:              getenvDefault("MIXDECK_LOG_FORMAT", "text"),
		Stdout:              getenvBool("MIXDECK_LOG_STDOUT", false),
		DisableErrorVerbose: true,
		File: zlog.FileLogConfig{
			RootPath: getenvDefault("MIXDECK_LOG_FILE_DIR", ""),
			Filename: getenvDefault("MIXDECK_LOG_FILE", ""),
		},
	}

	// When not enabled, direct all outputs to a discarded sink.
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("init global logger from env: %w", err)
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig creates named loggers from the "logging" section.
//
// Example:
//
//	logging:
//	  audiosession:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: audiosession.log
func (a *Application) initModuleLoggersFromConfig() error {
	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return fmt.Errorf("init module logger %q: %w", name, err)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}
	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
