// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
)

// ErrNoHandler is returned by Resolve when no terminal handler is set.
var ErrNoHandler = errors.New("httpstack: no handler has been specified")

// A Stack composes named middleware around a terminal handler. A Stack
// is itself a Handler.
//
// The first middleware pushed is the outermost layer: it sees the
// request first and the response last. The last middleware pushed
// wraps the terminal handler directly.
//
// Stack is safe for concurrent use.
type Stack struct {
	lock     sync.Mutex
	handler  Handler
	layers   []layer
	resolved Handler
}

type layer struct {
	mw   Middleware
	name string
}

// NewStack returns a stack with terminal handler h, which may be nil.
func NewStack(h Handler) *Stack {
	return &Stack{handler: h}
}

// NewDefaultStack returns a stack with terminal handler h and the
// default middleware: http_errors, allow_redirects, cookies and
// prepare_body, in that order.
func NewDefaultStack(h Handler) *Stack {
	s := NewStack(h)
	s.Push(HTTPErrors(), "http_errors")
	s.Push(Redirect(), "allow_redirects")
	s.Push(Cookies(), "cookies")
	s.Push(PrepareBody(), "prepare_body")
	return s
}

// SetHandler sets the terminal handler.
func (s *Stack) SetHandler(h Handler) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handler = h
	s.resolved = nil
}

// HasHandler reports whether a terminal handler is set.
func (s *Stack) HasHandler() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.handler != nil
}

// Push adds a middleware on the inside of the stack, just around the
// terminal handler. The name may be empty.
func (s *Stack) Push(mw Middleware, name string) {
	mustMiddleware(mw)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.layers = append(s.layers, layer{mw, name})
	s.resolved = nil
}

// Unshift adds a middleware on the outside of the stack.
func (s *Stack) Unshift(mw Middleware, name string) {
	mustMiddleware(mw)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.layers = append([]layer{{mw, name}}, s.layers...)
	s.resolved = nil
}

// InsertBefore adds a middleware just outside the middleware named
// name. It panics if there is no such middleware.
func (s *Stack) InsertBefore(name string, mw Middleware, newName string) {
	s.insert(name, mw, newName, 0)
}

// InsertAfter adds a middleware just inside the middleware named name.
// It panics if there is no such middleware.
func (s *Stack) InsertAfter(name string, mw Middleware, newName string) {
	s.insert(name, mw, newName, 1)
}

func (s *Stack) insert(name string, mw Middleware, newName string, offset int) {
	mustMiddleware(mw)
	s.lock.Lock()
	defer s.lock.Unlock()
	i := s.find(name)
	if i < 0 {
		panic(httperr.InvalidArgument("httpstack: middleware not found: %s", name))
	}
	i += offset
	s.layers = append(s.layers, layer{})
	copy(s.layers[i+1:], s.layers[i:])
	s.layers[i] = layer{mw, newName}
	s.resolved = nil
}

// Remove removes every middleware named name.
func (s *Stack) Remove(name string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	kept := s.layers[:0]
	for _, l := range s.layers {
		if l.name != name {
			kept = append(kept, l)
		}
	}
	for i := len(kept); i < len(s.layers); i++ {
		s.layers[i] = layer{}
	}
	s.layers = kept
	s.resolved = nil
}

func (s *Stack) find(name string) int {
	for i, l := range s.layers {
		if l.name == name {
			return i
		}
	}
	return -1
}

// Resolve composes the middleware around the terminal handler. The
// result is cached until the stack is changed.
func (s *Stack) Resolve() (Handler, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.resolved != nil {
		return s.resolved, nil
	}
	if s.handler == nil {
		return nil, ErrNoHandler
	}

	h := s.handler
	for i := len(s.layers) - 1; i >= 0; i-- {
		h = s.layers[i].mw(h)
	}
	s.resolved = h
	return h, nil
}

// Handle sends req through the resolved stack. It panics if no terminal
// handler is set.
func (s *Stack) Handle(req *http.Request, opts request.Options) *promise.Promise {
	h, err := s.Resolve()
	if err != nil {
		panic(err)
	}
	return h.Handle(req, opts)
}

// String describes the layers of the stack, from the outside in and
// back out.
func (s *Stack) String() string {
	s.lock.Lock()
	defer s.lock.Unlock()

	var in strings.Builder
	var out []string
	if s.handler != nil {
		out = append(out, fmt.Sprintf("0) Handler: %T", s.handler))
	}
	var lines []string
	for i := len(s.layers) - 1; i >= 0; i-- {
		l := s.layers[i]
		line := fmt.Sprintf("%d) Name: '%s', Function: %s", len(s.layers)-i, l.name, funcName(l.mw))
		lines = append(lines, line)
		out = append(out, line)
	}
	for i := len(lines) - 1; i >= 0; i-- {
		in.WriteString("> " + lines[i] + "\n")
	}
	for _, line := range out {
		in.WriteString("< " + line + "\n")
	}
	return in.String()
}

func funcName(f interface{}) string {
	fn := runtime.FuncForPC(reflect.ValueOf(f).Pointer())
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

func mustMiddleware(mw Middleware) {
	if mw == nil {
		panic("httpstack: nil middleware")
	}
}
