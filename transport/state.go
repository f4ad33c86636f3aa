// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
	"github.com/gogama/httpstack/sink"
	"github.com/google/uuid"
)

// ErrReleased is returned when the handle of a TransferState is
// accessed after the transfer finished and the handle went back to the
// pool.
var ErrReleased = errors.New("httpstack/transport: handle already released")

// ErrUnbound is returned when the handle of a TransferState is accessed
// before the transfer started.
var ErrUnbound = errors.New("httpstack/transport: no handle bound yet")

type slotState int

const (
	unbound slotState = iota
	bound
	released
)

// A TransferState is the bookkeeping for one in-flight transfer. It is
// created when the transfer is queued and released, along with its
// handle, when the transfer's promise settles.
type TransferState struct {
	// ID identifies the transfer in log entries.
	ID uuid.UUID
	// Request is the request being sent.
	Request *http.Request
	// Options are the request options.
	Options request.Options

	settings  *Settings
	sink      *sink.Sink
	onHeaders func(*http.Response) error
	onStats   func(*request.TransferStats)
	promise   *promise.Promise

	slot   slotState
	handle *pooled

	headerLines  []string
	response     *http.Response
	onHeadersErr error

	startAt time.Time
	start   time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	aborted int32
}

// Handle returns the handle bound to the transfer.
func (ts *TransferState) Handle() (Handle, error) {
	switch ts.slot {
	case bound:
		return ts.handle.Handle, nil
	case released:
		return nil, ErrReleased
	default:
		return nil, ErrUnbound
	}
}

// HeaderLines returns the raw response header lines received so far,
// starting with the status line.
func (ts *TransferState) HeaderLines() []string {
	return ts.headerLines
}

func (ts *TransferState) bind(ph *pooled) {
	ts.handle = ph
	ts.slot = bound
}

func (ts *TransferState) release() *pooled {
	ph := ts.handle
	ts.handle = nil
	ts.slot = released
	return ph
}

func (ts *TransferState) abort() bool {
	return atomic.CompareAndSwapInt32(&ts.aborted, 0, 1)
}

func (ts *TransferState) isAborted() bool {
	return atomic.LoadInt32(&ts.aborted) == 1
}
