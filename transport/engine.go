// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

// An Engine creates the native handles a Handler pools. NetEngine is the
// default; tests and alternative network stacks supply their own.
type Engine interface {
	NewHandle() (Handle, error)
}

// A Handle performs one transfer at a time. Handler guarantees a handle
// is bound to at most one transfer, and calls Reset before binding it
// to the next one.
type Handle interface {
	// Configure applies the settings of the next transfer.
	Configure(s *Settings) error
	// Perform runs the transfer to completion, calling the settings'
	// HeaderFunc with each raw header line and WriteFunc with each chunk
	// of the response body. It must return promptly once ctx is done.
	Perform(ctx context.Context) error
	// Info reports on the most recent transfer.
	Info() Info
	// Reset clears every per-transfer setting so the handle can be
	// reused.
	Reset()
	// Close releases the handle's resources. The handle is not used
	// again.
	Close() error
}

// Settings describe one transfer to a Handle.
type Settings struct {
	Method string
	URL    *url.URL
	Host   string
	Header http.Header

	// Body is nil when the request has no body.
	Body io.Reader
	// ContentLength is the pinned body length, or -1 when the body must
	// be sent with chunked transfer encoding.
	ContentLength int64

	// Timeout bounds the whole transfer and ConnectTimeout the
	// connection phase. Zero means no limit.
	Timeout        time.Duration
	ConnectTimeout time.Duration

	// VerifyPeer enables TLS certificate verification, against the CA
	// bundle at CAFile if it is set.
	VerifyPeer bool
	CAFile     string
	CertFile   string
	KeyFile    string
	// Proxy is the proxy URL, or nil to honour the environment.
	Proxy         *url.URL
	DecodeContent bool

	// HeaderFunc receives the status line, then each header line, and
	// finally an empty line once all headers are known. A non-nil return
	// value aborts the transfer.
	HeaderFunc func(line string) error
	// WriteFunc receives the response body.
	WriteFunc func(p []byte) (int, error)
}

// Info describes a completed or failed transfer.
type Info struct {
	// Connected is true if a connection to the server was established.
	Connected bool
	// PrimaryIP is the IP address of the server connected to.
	PrimaryIP string
	// TotalTime is the time taken by Perform.
	TotalTime time.Duration
}
