// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"github.com/gogama/httpstack/request"
)

// A ListenerGroup is a group of event listener chains which can be
// installed in a Retrier.
type ListenerGroup struct {
	listeners [][]Listener
}

// PushBack adds a listener to the back of the listener chain for a
// specific event type.
func (g *ListenerGroup) PushBack(evt Event, l Listener) {
	if l == nil {
		panic("httpstack: nil listener")
	}

	if g.listeners == nil {
		g.listeners = make([][]Listener, numEvents)
	}

	g.listeners[evt] = append(g.listeners[evt], l)
}

func (g *ListenerGroup) run(evt Event, e *request.Execution) {
	if g == nil {
		return
	}
	i := int(evt)
	if i < len(g.listeners) {
		for _, l := range g.listeners[i] {
			l.OnEvent(evt, e)
		}
	}
}

// A Listener observes the occurrence of an event while Retrier
// executes a request.
type Listener interface {
	OnEvent(Event, *request.Execution)
}

// The ListenerFunc type is an adapter to allow the use of ordinary
// functions as listeners.
type ListenerFunc func(Event, *request.Execution)

// OnEvent calls f(evt, e).
func (f ListenerFunc) OnEvent(evt Event, e *request.Execution) {
	f(evt, e)
}
