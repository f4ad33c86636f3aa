// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
)

// fakeEngine hands out scripted handles. Each Perform call runs script
// with the handle's settings.
type fakeEngine struct {
	lock       sync.Mutex
	handles    []*fakeHandle
	newErr     error
	script     func(ctx context.Context, s *Settings, info *Info) error
	running    int32
	maxRunning int32
	performed  int32
}

func (e *fakeEngine) NewHandle() (Handle, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.newErr != nil {
		return nil, e.newErr
	}
	fh := &fakeHandle{engine: e}
	e.handles = append(e.handles, fh)
	return fh, nil
}

func (e *fakeEngine) handleCount() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return len(e.handles)
}

type fakeHandle struct {
	engine     *fakeEngine
	settings   *Settings
	configured []*Settings
	info       Info
	resets     int
	closes     int
}

func (h *fakeHandle) Configure(s *Settings) error {
	if h.settings != nil {
		return errors.New("fake: handle configured twice without reset")
	}
	h.settings = s
	h.configured = append(h.configured, s)
	return nil
}

func (h *fakeHandle) Perform(ctx context.Context) error {
	e := h.engine
	n := atomic.AddInt32(&e.running, 1)
	for {
		m := atomic.LoadInt32(&e.maxRunning)
		if n <= m || atomic.CompareAndSwapInt32(&e.maxRunning, m, n) {
			break
		}
	}
	defer atomic.AddInt32(&e.running, -1)
	atomic.AddInt32(&e.performed, 1)
	h.info.Connected = true
	h.info.PrimaryIP = "10.0.0.1"
	return e.script(ctx, h.settings, &h.info)
}

func (h *fakeHandle) Info() Info {
	return h.info
}

func (h *fakeHandle) Reset() {
	h.settings = nil
	h.info = Info{}
	h.resets++
}

func (h *fakeHandle) Close() error {
	h.closes++
	return nil
}

// respond returns a script which sends a canned response.
func respond(status string, header http.Header, body string) func(context.Context, *Settings, *Info) error {
	return func(ctx context.Context, s *Settings, _ *Info) error {
		if err := s.HeaderFunc("HTTP/1.1 " + status); err != nil {
			return err
		}
		for name, values := range header {
			for _, v := range values {
				if err := s.HeaderFunc(name + ": " + v); err != nil {
					return err
				}
			}
		}
		if err := s.HeaderFunc(""); err != nil {
			return err
		}
		_, err := s.WriteFunc([]byte(body))
		return err
	}
}

// block returns a script which waits for ctx to be done.
func block(ctx context.Context, _ *Settings, _ *Info) error {
	<-ctx.Done()
	return ctx.Err()
}
