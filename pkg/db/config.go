package db

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sql-driver/mysql"
)

// ErrInvalidConfig wraps every problem reported by Validate
var ErrInvalidConfig = errors.New("invalid database config")

// Validate reports every problem in the configuration at once
func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}
	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.MaxOpenConns < 1 {
		errs = append(errs, errors.New("max_open_conns must be at least 1"))
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errs = append(errs, errors.New("max_idle_conns cannot be greater than max_open_conns"))
	}
	if c.QueryTimeout < 0 {
		errs = append(errs, errors.New("query_timeout cannot be negative"))
	}
	if _, err := c.location(); err != nil {
		errs = append(errs, err)
	}
	if c.SSL.Enabled && !c.SSL.SkipVerify {
		if err := c.SSL.checkFiles(); err != nil {
			errs = append(errs, fmt.Errorf("tls: %w", err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (s SSLConfig) checkFiles() error {
	if (s.CertFile == "") != (s.KeyFile == "") {
		return errors.New("cert_file and key_file must be set together")
	}
	files := []struct{ label, path string }{
		{"CA file", s.CAFile},
		{"cert file", s.CertFile},
		{"key file", s.KeyFile},
	}
	var errs []error
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.label, err))
		}
	}
	return errors.Join(errs...)
}

// DSN renders the driver DSN. With verified TLS enabled the certificates are
// loaded and registered with the driver under a name derived from the files.
func (c *Config) DSN() (string, error) {
	loc, err := c.location()
	if err != nil {
		return "", err
	}

	cfg := mysql.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.Database
	cfg.Collation = c.Collation
	cfg.Loc = loc
	cfg.ParseTime = true
	if c.Charset != "" {
		cfg.Params = map[string]string{"charset": c.Charset}
	}

	switch {
	case !c.SSL.Enabled:
	case c.SSL.SkipVerify:
		cfg.TLSConfig = "skip-verify"
	default:
		tlsConfig, err := c.SSL.tlsConfig()
		if err != nil {
			return "", fmt.Errorf("tls: %w", err)
		}
		name := c.SSL.registrationName()
		if err := mysql.RegisterTLSConfig(name, tlsConfig); err != nil {
			return "", fmt.Errorf("tls: %w", err)
		}
		cfg.TLSConfig = name
	}

	return cfg.FormatDSN(), nil
}

func (s SSLConfig) tlsConfig() (*tls.Config, error) {
	out := &tls.Config{ServerName: s.ServerName}

	if s.CAFile != "" {
		pem, err := os.ReadFile(s.CAFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", s.CAFile)
		}
		out.RootCAs = pool
	}

	if s.CertFile != "" && s.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.CertFile, s.KeyFile)
		if err != nil {
			return nil, err
		}
		out.Certificates = []tls.Certificate{cert}
	}
	return out, nil
}

// registrationName is stable for equal settings, so re-registering replaces an equal config
func (s SSLConfig) registrationName() string {
	h := xxhash.New()
	for _, part := range []string{s.CAFile, s.CertFile, s.KeyFile, s.ServerName} {
		_, _ = h.WriteString(part)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("hydra4go_tls_%016x", h.Sum64())
}

func (c *Config) location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
