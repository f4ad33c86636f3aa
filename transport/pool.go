// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// A pooled handle is a Handle plus its pool bookkeeping.
type pooled struct {
	Handle
	id    uint64
	taken bool
}

// pool caps the number of live handles, active or idle, and keeps the
// most recently used idle handles for reuse. It is only touched from
// the reactor step.
type pool struct {
	engine Engine
	live   *semaphore.Weighted
	idle   *lru.Cache[uint64, *pooled]
	nextID uint64
	logger logrus.FieldLogger
}

func newPool(engine Engine, maxHandles, maxIdle int, logger logrus.FieldLogger) *pool {
	p := &pool{
		engine: engine,
		live:   semaphore.NewWeighted(int64(maxHandles)),
		logger: logger,
	}
	idle, err := lru.NewWithEvict[uint64, *pooled](maxIdle, p.evicted)
	if err != nil {
		panic("httpstack/transport: " + err.Error())
	}
	p.idle = idle
	return p
}

// acquire returns an idle handle, or a new one if the live handle cap
// allows. It returns nil and no error when the pool is at capacity.
func (p *pool) acquire() (*pooled, error) {
	keys := p.idle.Keys()
	if n := len(keys); n > 0 {
		ph, _ := p.idle.Peek(keys[n-1])
		ph.taken = true
		p.idle.Remove(ph.id)
		p.logger.WithField("handle_id", ph.id).Debug("httpstack/transport: reusing idle handle")
		return ph, nil
	}

	if !p.live.TryAcquire(1) {
		return nil, nil
	}
	h, err := p.engine.NewHandle()
	if err != nil {
		p.live.Release(1)
		return nil, err
	}
	p.nextID++
	p.logger.WithField("handle_id", p.nextID).Debug("httpstack/transport: allocated handle")
	return &pooled{Handle: h, id: p.nextID, taken: true}, nil
}

// release resets a handle after a clean transfer and makes it idle. If
// the idle cache is full, its least recently used handle is closed.
func (p *pool) release(ph *pooled) {
	ph.Reset()
	ph.taken = false
	p.idle.Add(ph.id, ph)
}

// discard closes a handle whose protocol state is unknown.
func (p *pool) discard(ph *pooled) {
	p.logger.WithField("handle_id", ph.id).Debug("httpstack/transport: discarding handle")
	p.close(ph)
}

func (p *pool) evicted(_ uint64, ph *pooled) {
	if ph.taken {
		return
	}
	p.close(ph)
}

func (p *pool) close(ph *pooled) {
	if err := ph.Close(); err != nil {
		p.logger.WithError(err).WithField("handle_id", ph.id).Debug("httpstack/transport: error closing handle")
	}
	p.live.Release(1)
}

// idleLen returns the number of idle handles.
func (p *pool) idleLen() int {
	return p.idle.Len()
}

// purge closes every idle handle.
func (p *pool) purge() {
	p.idle.Purge()
}
