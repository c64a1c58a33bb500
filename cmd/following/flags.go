package main

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/kylewelch/following/internal/logging"
	"github.com/kylewelch/following/internal/server"
	"github.com/kylewelch/following/internal/twitter"
)

var (
	fDebug           = "debug"
	fPort            = "port"
	fAPIKey          = "twitter-api-key"
	fAPISecretKey    = "twitter-api-secret-key"
	fAPIBaseURL      = "api-base-url"
	fScreenName      = "screen-name"
	fUpstreamTimeout = "upstream-timeout"
	fLogFormat       = "log-format"
	fOtel            = "otel"
	fTLSCert         = "tls-cert"
	fTLSKey          = "tls-key"
)
var profiles []string

func getFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    fDebug,
			Usage:   "Enable debug logging",
			Sources: getSources(fDebug, "FOLLOWING_DEBUG"),
		},
		&cli.StringSliceFlag{
			Name:        "profile",
			Usage:       "YAML profile files that specify flags. Can be stacked from highest precedence to lowest.",
			TakesFile:   true,
			Destination: &profiles,
		},
		&cli.StringFlag{
			Name:    fPort,
			Usage:   "The port on which to run the server",
			Value:   "3000",
			Sources: getSources(fPort, "PORT"),
		},
		&cli.StringFlag{
			Name:    fAPIKey,
			Usage:   "Twitter API key used for the client-credentials exchange",
			Sources: getSources(fAPIKey, "TWITTER_API_KEY"),
		},
		&cli.StringFlag{
			Name:    fAPISecretKey,
			Usage:   "Twitter API secret key used for the client-credentials exchange",
			Sources: getSources(fAPISecretKey, "TWITTER_API_SECRET_KEY"),
		},
		&cli.StringFlag{
			Name:    fAPIBaseURL,
			Usage:   "Base URL of the Twitter API",
			Value:   twitter.DefaultBaseURL,
			Sources: getSources(fAPIBaseURL, "TWITTER_API_BASE_URL"),
		},
		&cli.StringFlag{
			Name:    fScreenName,
			Usage:   "The account whose friends /api/following lists",
			Value:   server.DefaultScreenName,
			Sources: getSources(fScreenName, "FOLLOWING_SCREEN_NAME"),
		},
		&cli.DurationFlag{
			Name:    fUpstreamTimeout,
			Usage:   "Timeout for each request to the Twitter API",
			Value:   30 * time.Second,
			Sources: getSources(fUpstreamTimeout, "FOLLOWING_UPSTREAM_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    fLogFormat,
			Usage:   fmt.Sprintf("Log output format, %q or %q", logging.FormatConsole, logging.FormatJSON),
			Value:   logging.FormatConsole,
			Sources: getSources(fLogFormat, "FOLLOWING_LOG_FORMAT"),
			Validator: func(format string) error {
				if format != logging.FormatConsole && format != logging.FormatJSON {
					return fmt.Errorf("unknown log format %q", format)
				}
				return nil
			},
		},
		&cli.StringFlag{
			Name:      fTLSCert,
			Usage:     "PEM certificate chain to serve HTTPS with. Requires --tls-key",
			TakesFile: true,
			Sources:   getSources(fTLSCert, "FOLLOWING_TLS_CERT"),
		},
		&cli.StringFlag{
			Name:      fTLSKey,
			Usage:     "PEM private key matching --tls-cert",
			TakesFile: true,
			Sources:   getSources(fTLSKey, "FOLLOWING_TLS_KEY"),
		},
		&cli.BoolFlag{
			Name:    fOtel,
			Usage:   "Export traces, metrics and logs over OTLP/HTTP",
			Sources: getSources(fOtel, "FOLLOWING_OTEL"),
		},
	}
}

// config is everything run needs, resolved from flags, env and profiles.
type config struct {
	port            string
	apiKey          string
	apiSecret       string
	apiBaseURL      string
	screenName      string
	upstreamTimeout time.Duration
	tlsCert         string
	tlsKey          string
}

func configFromCommand(cmd *cli.Command) (config, error) {
	cfg := config{
		port:            cmd.String(fPort),
		apiKey:          cmd.String(fAPIKey),
		apiSecret:       cmd.String(fAPISecretKey),
		apiBaseURL:      cmd.String(fAPIBaseURL),
		screenName:      cmd.String(fScreenName),
		upstreamTimeout: cmd.Duration(fUpstreamTimeout),
		tlsCert:         cmd.String(fTLSCert),
		tlsKey:          cmd.String(fTLSKey),
	}
	if (cfg.tlsCert == "") != (cfg.tlsKey == "") {
		return config{}, fmt.Errorf("--%s and --%s must be set together", fTLSCert, fTLSKey)
	}
	return cfg, nil
}

// getSources resolves a flag from the environment first, then from the YAML profiles.
func getSources(name string, envVar string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(
		cli.EnvVar(envVar),
		&profilesSource{name: name},
	)
}

type profilesSource struct {
	name string
}

// GoString implements cli.ValueSource.
func (ps *profilesSource) GoString() string {
	return fmt.Sprintf("&profilesSource{name:%[1]q}", ps.name)
}

func (ps *profilesSource) String() string {
	return strings.Join(profiles, ",")
}

func (ps *profilesSource) Lookup() (string, bool) {
	sources := cli.ValueSourceChain{
		Chain: []cli.ValueSource{},
	}
	for i := range profiles {
		sources.Chain = append(
			sources.Chain,
			yaml.YAML(ps.name, altsrc.NewStringPtrSourcer(&profiles[i])),
		)
	}
	return sources.Lookup()
}
