package server

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"
)

// TLSConfig is handed to http.Server.ServeTLS. The files may be empty when
// config already carries certificates.
type TLSConfig struct {
	config   *tls.Config
	certFile string
	keyFile  string
}

// ServerOption holds optional settings for ServeFn.
type ServerOption struct {
	listener  net.Listener
	tlsConfig *TLSConfig
}

type Option func(*ServerOption)

// WithTLSConfig serves over TLS. A nil config leaves the server on plain HTTP.
func WithTLSConfig(config *tls.Config, certFilePath string, keyFilePath string) Option {
	return func(so *ServerOption) {
		if config != nil {
			so.tlsConfig = &TLSConfig{
				config:   config,
				certFile: certFilePath,
				keyFile:  keyFilePath,
			}
		}
	}
}

// WithListener serves on an already bound listener instead of srv.Addr.
func WithListener(listener net.Listener) Option {
	return func(so *ServerOption) {
		so.listener = listener
	}
}

// ServeFn returns a callback suitable for errgroup.Go that serves srv until it is shut
// down, at which point the callback returns nil.
func ServeFn(srv *http.Server, name string, opts ...Option) func() error {
	options := &ServerOption{}
	for _, o := range opts {
		o(options)
	}
	return func() error {
		ln := options.listener
		if ln == nil {
			var err error
			ln, err = net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
		}
		defer ln.Close()

		var err error
		if tlsOpts := options.tlsConfig; tlsOpts != nil {
			srv.TLSConfig = tlsOpts.config
			log.Info().Msgf("serving %s on %s over TLS", name, ln.Addr())
			err = srv.ServeTLS(ln, tlsOpts.certFile, tlsOpts.keyFile)
		} else {
			log.Debug().Msgf("serving %s on %s", name, ln.Addr())
			err = srv.Serve(ln)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msgf("%s server closed abnormally", name)
			return err
		}
		return nil
	}
}
