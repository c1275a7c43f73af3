// Package tls configures HTTPS for the server, either from certificate
// files or through Let's Encrypt.
package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/logger"

	"golang.org/x/crypto/acme/autocert"
)

const shutdownTimeout = 5 * time.Second

// Settings mirror the [TLS] configuration section.
type Settings struct {
	Enabled       bool
	LetsEncrypt   bool
	Domain        string
	Email         string
	CacheDir      string
	CertFile      string
	KeyFile       string
	HTTPSAddr     string
	ForceRedirect bool
}

// LoadSettings reads the [TLS] section.
func LoadSettings() Settings {
	return Settings{
		Enabled:       configuration.GetBool("TLS", "enable_tls", false),
		LetsEncrypt:   configuration.GetBool("TLS", "enable_letsencrypt", false),
		Domain:        strings.TrimSpace(configuration.GetString("TLS", "domain", "")),
		Email:         strings.TrimSpace(configuration.GetString("TLS", "letsencrypt_email", "")),
		CacheDir:      configuration.GetString("TLS", "cert_cache_dir", "./certs"),
		CertFile:      configuration.GetString("TLS", "cert_file", "./certs/server.crt"),
		KeyFile:       configuration.GetString("TLS", "key_file", "./certs/server.key"),
		HTTPSAddr:     configuration.GetString("TLS", "https_addr", ":8443"),
		ForceRedirect: configuration.GetBool("TLS", "force_https_redirect", false),
	}
}

// Validate checks that an enabled configuration can work.
func (s Settings) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.LetsEncrypt {
		if s.Domain == "" {
			return errors.New("domain is required when Let's Encrypt is enabled")
		}
		if s.Email == "" {
			return errors.New("letsencrypt_email is required when Let's Encrypt is enabled")
		}
		return nil
	}
	for _, f := range []string{s.CertFile, s.KeyFile} {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("tls file %s: %w", f, err)
		}
	}
	return nil
}

// Manager runs the plain HTTP listener and, when enabled, the HTTPS one.
type Manager struct {
	settings  Settings
	autocert  *autocert.Manager
	tlsConfig *tls.Config
}

// NewManager validates settings and prepares certificate handling.
func NewManager(settings Settings) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}
	m := &Manager{settings: settings}
	if !settings.Enabled {
		return m, nil
	}

	m.tlsConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"h2", "http/1.1"},
	}
	if settings.LetsEncrypt {
		if err := os.MkdirAll(settings.CacheDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create certificate cache: %w", err)
		}
		m.autocert = &autocert.Manager{
			Cache:      autocert.DirCache(settings.CacheDir),
			Prompt:     autocert.AcceptTOS,
			Email:      settings.Email,
			HostPolicy: autocert.HostWhitelist(settings.Domain, "www."+settings.Domain),
		}
		m.tlsConfig.GetCertificate = m.getCertificate
		logger.SecurityInfo("Let's Encrypt enabled for %s", settings.Domain)
	} else {
		cert, err := tls.LoadX509KeyPair(settings.CertFile, settings.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate: %w", err)
		}
		m.tlsConfig.Certificates = []tls.Certificate{cert}
		logger.SecurityInfo("Using certificate %s", settings.CertFile)
	}
	return m, nil
}

// getCertificate falls back to the configured domain for clients without SNI.
func (m *Manager) getCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if hello.ServerName == "" {
		hello.ServerName = m.settings.Domain
	}
	cert, err := m.autocert.GetCertificate(hello)
	if err != nil {
		logger.SecurityWarn("No certificate for %q: %v", hello.ServerName, err)
	}
	return cert, err
}

// Enabled reports whether HTTPS is served.
func (m *Manager) Enabled() bool {
	return m.settings.Enabled
}

// TLSConfig returns the HTTPS configuration, or nil when disabled.
func (m *Manager) TLSConfig() *tls.Config {
	return m.tlsConfig
}

// HTTPHandler returns what the plain listener serves: app itself without
// TLS, otherwise ACME challenges and the HTTPS redirect as configured.
func (m *Manager) HTTPHandler(app http.Handler) http.Handler {
	if !m.settings.Enabled {
		return app
	}
	fallback := app
	if m.settings.ForceRedirect {
		fallback = m.redirectHandler()
	}
	if m.autocert != nil {
		return m.autocert.HTTPHandler(fallback)
	}
	return fallback
}

func (m *Manager) redirectHandler() http.Handler {
	_, port, _ := net.SplitHostPort(m.settings.HTTPSAddr)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		target := "https://" + host
		if port != "" && port != "443" {
			target += ":" + port
		}
		http.Redirect(w, r, target+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}

// ListenAndServe serves app on httpAddr, and on the HTTPS address when
// enabled, until ctx is done or a listener fails.
func (m *Manager) ListenAndServe(ctx context.Context, httpAddr string, app http.Handler) error {
	servers := []*http.Server{{Addr: httpAddr, Handler: m.HTTPHandler(app)}}
	if m.settings.Enabled {
		servers = append(servers, &http.Server{
			Addr:      m.settings.HTTPSAddr,
			Handler:   app,
			TLSConfig: m.tlsConfig,
		})
	}

	errs := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			var err error
			if srv.TLSConfig != nil {
				logger.SecurityInfo("HTTPS listening on %s", srv.Addr)
				err = srv.ListenAndServeTLS("", "")
			} else {
				logger.Info(logger.AreaGeneral, "HTTP listening on %s", srv.Addr)
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("server on %s: %w", srv.Addr, err)
				return
			}
			errs <- nil
		}(srv)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn(logger.AreaGeneral, "Shutdown of %s: %v", srv.Addr, serr)
		}
	}
	return err
}
