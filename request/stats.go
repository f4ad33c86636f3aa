// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"net/url"
	"time"
)

// TransferStats describes one completed transfer. It is passed to the
// on_stats callback once per settled request, whether it was fulfilled
// or rejected.
type TransferStats struct {
	// Request is the request which was sent.
	Request *http.Request
	// Response is the response received, or nil.
	Response *http.Response
	// TransferTime is the total time spent on the transfer.
	TransferTime time.Duration
	// Err is the error the transfer failed with, or nil.
	Err error
	// HandlerStats holds handler-specific statistics, such as the
	// primary IP address used or the connection error number.
	HandlerStats map[string]interface{}
}

// HasResponse reports whether a response was received.
func (s *TransferStats) HasResponse() bool {
	return s.Response != nil
}

// EffectiveURL returns the URL the transfer was sent to.
func (s *TransferStats) EffectiveURL() *url.URL {
	if s.Request == nil {
		return nil
	}
	return s.Request.URL
}

// Stat returns the handler statistic stored for key, or nil.
func (s *TransferStats) Stat(key string) interface{} {
	return s.HandlerStats[key]
}
