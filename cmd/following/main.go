package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/log/global"
	"golang.org/x/sync/errgroup"

	"github.com/kylewelch/following/internal/logging"
	"github.com/kylewelch/following/internal/server"
	"github.com/kylewelch/following/internal/telemetry"
	"github.com/kylewelch/following/internal/tokencache"
	"github.com/kylewelch/following/internal/twitter"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("unable to load .env file")
	}

	cmd := &cli.Command{
		Name:   "following",
		Usage:  "Proxy the Twitter friends list of a fixed account",
		Flags:  getFlags(),
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("error running command")
	}
}

func run(_ context.Context, cmd *cli.Command) error {
	cfg, err := configFromCommand(cmd)
	if err != nil {
		return err
	}

	// Setup context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// OpenTelemetry has to come first so the logger below can be hooked into it.
	var logWriters []io.Writer
	if cmd.Bool(fOtel) {
		otelClose, err := telemetry.SetupOpenTelemetry(ctx)
		if err != nil {
			return fmt.Errorf("setting up open telemetry: %w", err)
		}
		defer func() {
			if err := otelClose(context.Background()); err != nil {
				log.Err(err).Msg("shutting down open telemetry")
			}
		}()
		logWriters = append(logWriters, telemetry.NewOtelLogWriter(global.GetLoggerProvider().Logger("zerolog")))
	}

	level := zerolog.InfoLevel
	if cmd.Bool(fDebug) {
		level = zerolog.DebugLevel
	}
	logger := logging.NewLogger(cmd.String(fLogFormat), level, logWriters...)

	// Log the parsed flag names (values may be sensitive).
	log.Info().Msgf("running with flags: %s", strings.Join(cmd.FlagNames(), ", "))

	if cfg.apiKey == "" || cfg.apiSecret == "" {
		log.Warn().Msg("twitter api credentials are not set, the token exchange will be rejected upstream")
	}

	handler, tokens, err := setupApp(cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.port))
	if err != nil {
		return fmt.Errorf("listening on port %s: %w", cfg.port, err)
	}
	scheme := "http"
	if cfg.tlsCert != "" {
		scheme = "https"
	}
	log.Info().Msgf("server started on port %s", cfg.port)
	log.Info().Msgf("%s://localhost:%s/", scheme, cfg.port)

	err = serve(ctx, cfg, handler, tokens, ln)
	if err != nil {
		log.Err(err).Msgf("server shut down returned an error")
	}
	return err
}

// setupApp wires the upstream client, the token cache and the HTTP handler.
func setupApp(cfg config, logger *zerolog.Logger) (http.Handler, *tokencache.Cache, error) {
	httpClient := &http.Client{
		Timeout:   cfg.upstreamTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	client, err := twitter.NewClient(cfg.apiBaseURL, cfg.apiKey, cfg.apiSecret, httpClient)
	if err != nil {
		return nil, nil, fmt.Errorf("creating twitter client: %w", err)
	}
	tokens := tokencache.New(client)
	srv := server.NewServer(tokens, client, cfg.screenName)

	handler := otelhttp.NewHandler(
		logging.AccessLog(*logger)(server.NewRouter(srv.Routes(), logger)),
		"following",
	)
	return handler, tokens, nil
}

// serve primes the token cache in the background and serves on ln until ctx is
// cancelled. A failed priming never stops the server.
func serve(ctx context.Context, cfg config, handler http.Handler, tokens *tokencache.Cache, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	opts := []server.Option{server.WithListener(ln)}
	if cfg.tlsCert != "" {
		opts = append(opts, server.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}, cfg.tlsCert, cfg.tlsKey))
	}

	eg, egCtx := errgroup.WithContext(ctx)

	// Priming failures are logged by the cache; the first request retries.
	eg.Go(func() error {
		_ = tokens.Prime(egCtx)
		return nil
	})

	eg.Go(server.ServeFn(httpServer, "following", opts...))

	// Gracefully shutdown server when context is cancelled
	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("shutting down server")
		return httpServer.Shutdown(context.Background())
	})

	return eg.Wait()
}
