// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package transport provides Handler, the concurrent transport handler at
the bottom of an httpstack handler stack.

A Handler multiplexes many transfers over a bounded pool of native
transfer handles. Each queued transfer is bound to a TransferState, and
each started transfer runs on its own worker goroutine, performing
blocking I/O on its handle. Everything else happens in the reactor step,
Tick: binding handles, parsing response headers, invoking the on_headers
and on_stats callbacks, settling promises, and recycling or discarding
handles. Promise continuations therefore run on whichever goroutine is
driving the reactor, one at a time.

Handles come from an Engine. NetEngine, the default, is built on
net/http; a test or an alternative network stack injects its own Engine
and observes exactly how each transfer was configured through the
Settings passed to Handle.Configure.

A handle is recycled only after a clean transfer, and is Reset before
it is bound again. A handle whose transfer failed or was cancelled is
closed instead, since the state of its connection is unknown.
*/
package transport
