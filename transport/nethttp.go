// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// NetEngine is the default Engine. Each of its handles owns an
// http.Transport, so a handle keeps its connection alive across the
// transfers it performs, much like a native easy handle.
type NetEngine struct {
	// Base, if not nil, is cloned to create each handle's transport.
	Base *http.Transport
}

// NewHandle returns a new handle backed by net/http.
func (e *NetEngine) NewHandle() (Handle, error) {
	return &netHandle{base: e.Base}, nil
}

type tlsKey struct {
	verify         bool
	caFile         string
	certFile       string
	keyFile        string
	proxy          string
	decode         bool
	connectTimeout time.Duration
}

type netHandle struct {
	base      *http.Transport
	transport *http.Transport
	key       tlsKey
	settings  *Settings
	info      Info
}

func (h *netHandle) Configure(s *Settings) error {
	key := tlsKey{
		verify:         s.VerifyPeer,
		caFile:         s.CAFile,
		certFile:       s.CertFile,
		keyFile:        s.KeyFile,
		decode:         s.DecodeContent,
		connectTimeout: s.ConnectTimeout,
	}
	if s.Proxy != nil {
		key.proxy = s.Proxy.String()
	}
	if h.transport == nil || key != h.key {
		t, err := h.newTransport(s)
		if err != nil {
			return err
		}
		if h.transport != nil {
			h.transport.CloseIdleConnections()
		}
		h.transport, h.key = t, key
	}
	h.settings = s
	return nil
}

func (h *netHandle) newTransport(s *Settings) (*http.Transport, error) {
	var t *http.Transport
	if h.base != nil {
		t = h.base.Clone()
	} else {
		t = http.DefaultTransport.(*http.Transport).Clone()
	}
	t.DisableCompression = !s.DecodeContent
	if s.ConnectTimeout > 0 {
		d := &net.Dialer{Timeout: s.ConnectTimeout, KeepAlive: 30 * time.Second}
		t.DialContext = d.DialContext
		t.TLSHandshakeTimeout = s.ConnectTimeout
	}
	if s.Proxy != nil {
		t.Proxy = http.ProxyURL(s.Proxy)
	}

	cfg := t.TLSClientConfig
	if cfg == nil {
		cfg = &tls.Config{}
	} else {
		cfg = cfg.Clone()
	}
	cfg.InsecureSkipVerify = !s.VerifyPeer
	if s.CAFile != "" {
		pem, err := os.ReadFile(s.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "httpstack/transport: cannot read CA bundle")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("httpstack/transport: no certificates in CA bundle %s", s.CAFile)
		}
		cfg.RootCAs = pool
	}
	if s.CertFile != "" {
		keyFile := s.KeyFile
		if keyFile == "" {
			keyFile = s.CertFile
		}
		cert, err := tls.LoadX509KeyPair(s.CertFile, keyFile)
		if err != nil {
			return nil, errors.Wrap(err, "httpstack/transport: cannot load client certificate")
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	t.TLSClientConfig = cfg
	return t, nil
}

func (h *netHandle) Perform(ctx context.Context) error {
	s := h.settings
	if s == nil {
		return errors.New("httpstack/transport: handle not configured")
	}
	start := time.Now()
	defer func() { h.info.TotalTime = time.Since(start) }()

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotConn: func(ci httptrace.GotConnInfo) {
			h.info.Connected = true
			if addr, ok := ci.Conn.RemoteAddr().(*net.TCPAddr); ok {
				h.info.PrimaryIP = addr.IP.String()
			} else if host, _, err := net.SplitHostPort(ci.Conn.RemoteAddr().String()); err == nil {
				h.info.PrimaryIP = host
			}
		},
	})

	req, err := http.NewRequestWithContext(ctx, s.Method, s.URL.String(), s.Body)
	if err != nil {
		return err
	}
	req.Header = s.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Host = s.Host
	if s.Body != nil {
		req.ContentLength = s.ContentLength
		if s.ContentLength == 0 {
			req.Body = http.NoBody
		}
		if s.ContentLength < 0 {
			req.TransferEncoding = []string{"chunked"}
		}
	}

	resp, err := h.transport.RoundTrip(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err = s.HeaderFunc(resp.Proto + " " + resp.Status); err != nil {
		return err
	}
	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range resp.Header[name] {
			if err = s.HeaderFunc(name + ": " + v); err != nil {
				return err
			}
		}
	}
	if err = s.HeaderFunc(""); err != nil {
		return err
	}

	_, err = io.Copy(writerFunc(s.WriteFunc), resp.Body)
	return err
}

func (h *netHandle) Info() Info {
	return h.info
}

func (h *netHandle) Reset() {
	h.settings = nil
	h.info = Info{}
}

func (h *netHandle) Close() error {
	if h.transport != nil {
		h.transport.CloseIdleConnections()
	}
	h.transport = nil
	h.settings = nil
	return nil
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}

// proxyURL parses the value of the proxy option.
func proxyURL(v interface{}) (*url.URL, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case *url.URL:
		return x, true
	case string:
		if x == "" {
			return nil, true
		}
		u, err := url.Parse(x)
		return u, err == nil
	default:
		return nil, false
	}
}
