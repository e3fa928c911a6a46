// Command servefs serves static files over HTTP using the fileserve
// middleware, with gzip content negotiation, optional h2c, Prometheus
// metrics, and structured access logging.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/klauspost/compress/gzhttp"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-isatty"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"example.com/servefs/internal/config"
	"example.com/servefs/internal/fileserve"
	"example.com/servefs/internal/fsx"
	"example.com/servefs/internal/logger"
	"example.com/servefs/internal/metrics"
	"example.com/servefs/internal/mimetype"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

type cliFlags struct {
	Config    string           `short:"c" help:"Path to a TOML or JSON configuration file." type:"existingfile"`
	Addr      string           `help:"Listen address. Overrides the configuration file." placeholder:"HOST:PORT"`
	BaseDir   string           `help:"Directory to serve files from. Overrides the configuration file." type:"existingdir"`
	LogLevel  string           `help:"Log level." enum:",debug,info,warn,error" default:""`
	LogFormat string           `help:"Log format." enum:",json,console,auto" default:""`
	Version   kong.VersionFlag `help:"Print version and exit."`
}

func main() {
	var flags cliFlags
	kctx := kong.Parse(&flags,
		kong.Name("servefs"),
		kong.Description("A static file server with conditional caching and byte-range support."),
		kong.UsageOnError(),
		kong.DefaultEnvars("SERVEFS"),
		kong.Vars{"version": version},
	)

	cfg, err := loadConfig(flags)
	kctx.FatalIfErrorf(err)

	log, err := newLogger(cfg.Logging)
	kctx.FatalIfErrorf(err)

	handler, err := buildHandler(cfg, log)
	kctx.FatalIfErrorf(err)

	if err := run(cfg, log, handler); err != nil {
		log.Error("server stopped with error", logger.LogFields{"error": err.Error()})
		os.Exit(1)
	}
	log.Info("server shut down gracefully", nil)
}

// loadConfig reads the configuration file (or starts from defaults) and
// applies the command-line overrides.
func loadConfig(flags cliFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.Config != "" {
		loaded, err := config.Load(flags.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.Addr != "" {
		cfg.Server.Address = flags.Addr
	}
	if flags.BaseDir != "" {
		cfg.FileServer.BaseDir = flags.BaseDir
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.Logging.Format = flags.LogFormat
	}
	return cfg, nil
}

// newLogger builds the process logger. The "auto" format picks console
// output when stderr is a terminal and JSON otherwise.
func newLogger(cfg config.Logging) (*logger.Logger, error) {
	format := cfg.Format
	if format == "auto" {
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "console"
		}
	}
	log, err := logger.NewLogger(cfg.Level, format, os.Stderr)
	if err != nil {
		return nil, err
	}
	log.SetAccessLog(*cfg.AccessLog)
	return log, nil
}

// buildHandler assembles the middleware stack:
// metrics/access-log -> gzip -> fileserve, plus the /metrics endpoint.
func buildHandler(cfg *config.Config, log *logger.Logger) (http.Handler, error) {
	files, err := fileserve.New(cfg.FileServer, fileserve.Deps{
		FS:   fsx.New(osfs.New()),
		MIME: mimetype.NewResolver(cfg.FileServer.MimeTypes),
		Log:  log,
		Next: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}),
		OnError: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("request failed", logger.LogFields{
				"method": r.Method, "uri": r.URL.RequestURI(), "error": err.Error(),
			})
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	if err != nil {
		return nil, err
	}

	var h http.Handler = files
	if *cfg.Server.Gzip {
		h = gzhttp.GzipHandler(h)
	}
	h = metrics.Instrument(h, func(r *http.Request, status int, bytes int64, dur time.Duration) {
		log.Access(r.Method, r.URL.RequestURI(), status, bytes, dur)
	})

	if cfg.Server.MetricsPath != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Server.MetricsPath, metrics.Handler())
		mux.Handle("/", h)
		h = mux
	}
	return h, nil
}

// run starts the listener and blocks until SIGINT or SIGTERM, then drains
// in-flight requests.
func run(cfg *config.Config, log *logger.Logger, handler http.Handler) error {
	if cfg.Server.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", logger.LogFields{
			"address": cfg.Server.Address,
			"root":    cfg.FileServer.BaseDir,
			"h2c":     cfg.Server.H2C,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
