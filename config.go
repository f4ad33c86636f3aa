// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gogama/httpstack/request"
	"github.com/gogama/httpstack/retry"
	"github.com/gogama/httpstack/timeout"
	"github.com/gogama/httpstack/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the file form of a Client configuration. Durations are
// written the way time.ParseDuration reads them, for example "2.5s".
//
//	timeout: 10s
//	connect_timeout: 2s
//	allow_redirects: true
//	max_redirects: 3
//	http_errors: false
//	verify: /etc/ssl/internal-ca.pem
//	proxy: http://proxy.internal:3128
//	retries: 2
//	max_handles: 20
//	log_level: info
type Config struct {
	Timeout        time.Duration     `yaml:"timeout"`
	ConnectTimeout time.Duration     `yaml:"connect_timeout"`
	AllowRedirects *bool             `yaml:"allow_redirects"`
	MaxRedirects   int               `yaml:"max_redirects"`
	HTTPErrors     *bool             `yaml:"http_errors"`
	DecodeContent  *bool             `yaml:"decode_content"`
	Verify         *Verify           `yaml:"verify"`
	Cert           string            `yaml:"cert"`
	SSLKey         string            `yaml:"ssl_key"`
	Proxy          string            `yaml:"proxy"`
	Headers        map[string]string `yaml:"headers"`

	// Retries is the number of retries allowed by the default retry
	// policy. Zero means requests are not retried.
	Retries int `yaml:"retries"`

	MaxHandles    int           `yaml:"max_handles"`
	MaxIdle       int           `yaml:"max_idle"`
	SelectTimeout time.Duration `yaml:"select_timeout"`

	// LogLevel enables the Log middleware at the named logrus level.
	LogLevel string `yaml:"log_level"`
}

// Verify is the verify setting: either a bool or the path of a CA
// bundle.
type Verify struct {
	Enabled bool
	CAFile  string
}

// UnmarshalYAML reads a bool or a CA bundle path.
func (v *Verify) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("httpstack: line %d: verify must be a bool or a path", node.Line)
	}
	if node.ShortTag() == "!!bool" {
		v.CAFile = ""
		return node.Decode(&v.Enabled)
	}
	v.Enabled = true
	v.CAFile = node.Value
	return nil
}

// MarshalYAML writes the bool or the CA bundle path.
func (v Verify) MarshalYAML() (interface{}, error) {
	if v.CAFile != "" {
		return v.CAFile, nil
	}
	return v.Enabled, nil
}

func (v *Verify) option() interface{} {
	if v.CAFile != "" {
		return v.CAFile
	}
	return v.Enabled
}

// LoadConfig reads a YAML configuration. Unknown keys are an error.
func LoadConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "httpstack: cannot parse config")
	}
	return &c, nil
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "httpstack: cannot open config %s", path)
	}
	defer func() { _ = f.Close() }()
	c, err := LoadConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "httpstack: %s", path)
	}
	return c, nil
}

// Options returns the request options the configuration describes.
// Settings left out of the configuration are left out of the options.
func (c *Config) Options() request.Options {
	opts := request.Options{}
	if c.Timeout > 0 {
		opts[request.Timeout] = c.Timeout
	}
	if c.ConnectTimeout > 0 {
		opts[request.ConnectTimeout] = c.ConnectTimeout
	}
	switch {
	case c.AllowRedirects != nil && !*c.AllowRedirects:
		opts[request.AllowRedirects] = false
	case c.MaxRedirects > 0:
		ro := request.DefaultRedirect
		ro.Max = c.MaxRedirects
		opts[request.AllowRedirects] = ro
	case c.AllowRedirects != nil:
		opts[request.AllowRedirects] = true
	}
	if c.HTTPErrors != nil {
		opts[request.HTTPErrors] = *c.HTTPErrors
	}
	if c.DecodeContent != nil {
		opts[request.DecodeContent] = *c.DecodeContent
	}
	if c.Verify != nil {
		opts[request.Verify] = c.Verify.option()
	}
	if c.Cert != "" {
		opts[request.Cert] = c.Cert
	}
	if c.SSLKey != "" {
		opts[request.SSLKey] = c.SSLKey
	}
	if c.Proxy != "" {
		opts[request.Proxy] = c.Proxy
	}
	if len(c.Headers) > 0 {
		opts[request.Headers] = c.Headers
	}
	return opts
}

// NewClient builds a Client from the configuration: a concurrent
// transport, the default stack around it, plus the Retry middleware if
// retries are enabled and the Log middleware if a log level is set.
//
// The logger, if not nil, receives transport diagnostics and, with
// log_level, the exchange log. If nil, the logrus standard logger is
// used.
func (c *Config) NewClient(logger logrus.FieldLogger) (*Client, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	th := &transport.Handler{
		MaxHandles:    c.MaxHandles,
		MaxIdle:       c.MaxIdle,
		SelectTimeout: c.SelectTimeout,
		Logger:        logger,
	}
	stack := NewDefaultStack(th)
	if c.Retries > 0 {
		d := retry.Times(c.Retries).
			And(retry.Rewindable).
			And(retry.StatusCode(http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout).Or(retry.TransientErr))
		rp := retry.NewPolicy(d, retry.DefaultWaiter)
		stack.Push(Retry(rp, timeout.DefaultPolicy), "retry")
	}
	if c.LogLevel != "" {
		level, err := logrus.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, errors.Wrap(err, "httpstack: bad log_level")
		}
		stack.Unshift(Log(logger, nil, level), "log")
	}
	return &Client{
		Handler: stack,
		Options: c.Options(),
		owned:   th,
	}, nil
}
