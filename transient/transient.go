// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"syscall"

	"github.com/gogama/httpstack/httperr"
)

// A Category is the transience category of an error, as reported by
// Categorize. Every category except Not is transient.
type Category int

const (
	// Not is the category of nil and of every non-transient error.
	Not Category = iota
	// Timeout means the client gave up waiting. Any error in the chain
	// with a Timeout method reporting true puts the error in this
	// category.
	Timeout
	// ConnRefused means the remote host refused the connection
	// (ECONNREFUSED), as happens while a service is restarting.
	ConnRefused
	// ConnReset means an established connection was reset by the peer
	// (ECONNRESET).
	ConnReset
	// Connect means no connection could be established for some other
	// reason, for example a DNS failure. The request never reached the
	// server.
	Connect
)

var categoryNames = []string{"not", "timeout", "conn_refused", "conn_reset", "connect"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of err. The whole chain of
// wrapped causes is inspected, and the first matching rule in the order
// Timeout, ConnReset/ConnRefused, Connect wins.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var t timeouter
	if errors.As(err, &t) && t.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET:
			return ConnReset
		case syscall.ECONNREFUSED:
			return ConnRefused
		case syscall.ETIMEDOUT:
			return Timeout
		}
	}

	var ce *httperr.ConnectError
	if errors.As(err, &ce) {
		return Connect
	}

	return Not
}

type timeouter interface {
	Timeout() bool
}
