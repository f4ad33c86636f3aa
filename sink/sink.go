// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package sink implements the destinations a response body can be
// written to while it is received: an in-memory buffer, a file path, an
// open file, or any io.Writer.
//
// The body written to a Sink is made available again through Body,
// which is what ends up as the Body of the settled *http.Response.
package sink

import (
	"bytes"
	"io"
	"net/http"
	"os"

	"github.com/gogama/httpstack/httperr"
	"github.com/pkg/errors"
)

type kind int

const (
	memory kind = iota
	path
	file
	stream
)

// A Sink receives the bytes of one response body.
//
// A Sink is not safe for concurrent use. The transport writes to it from
// the goroutine performing the transfer and reads Body back only after
// the transfer is over.
type Sink struct {
	kind  kind
	buf   bytes.Buffer
	path  string
	file  *os.File
	w     io.Writer
	start int64
	n     int64
}

// Open returns the Sink described by the value of the sink option:
//
//	nil         an in-memory buffer
//	string      the path of a file, created (or truncated) on first use
//	*os.File    an open file, written at its current offset
//	io.Writer   any other writable stream
func Open(v interface{}) (*Sink, error) {
	switch x := v.(type) {
	case nil:
		return &Sink{kind: memory}, nil
	case string:
		if x == "" {
			return nil, httperr.InvalidArgument("httpstack/sink: empty file path")
		}
		return &Sink{kind: path, path: x}, nil
	case *os.File:
		if x == nil {
			return nil, httperr.InvalidArgument("httpstack/sink: nil file")
		}
		start, err := x.Seek(0, io.SeekCurrent)
		if err != nil {
			start = 0
		}
		return &Sink{kind: file, file: x, start: start}, nil
	case io.Writer:
		s := &Sink{kind: stream, w: x}
		if ws, ok := x.(io.Seeker); ok {
			if start, err := ws.Seek(0, io.SeekCurrent); err == nil {
				s.start = start
			}
		}
		return s, nil
	default:
		return nil, httperr.InvalidArgument("httpstack/sink: sink must be a file path, *os.File or io.Writer, got %T", v)
	}
}

// Write appends p to the sink.
func (s *Sink) Write(p []byte) (int, error) {
	var n int
	var err error
	switch s.kind {
	case memory:
		n, err = s.buf.Write(p)
	case path:
		if err = s.create(); err != nil {
			return 0, err
		}
		n, err = s.file.Write(p)
	case file:
		n, err = s.file.Write(p)
	case stream:
		n, err = s.w.Write(p)
	}
	s.n += int64(n)
	return n, err
}

func (s *Sink) create() error {
	if s.file != nil {
		return nil
	}
	f, err := os.Create(s.path)
	if err != nil {
		return errors.Wrapf(err, "httpstack/sink: cannot open %s", s.path)
	}
	s.file = f
	return nil
}

// Len returns the number of bytes written so far.
func (s *Sink) Len() int64 {
	return s.n
}

// Target returns the value the sink writes to: the file path, the
// *os.File, the io.Writer, or nil for an in-memory sink.
func (s *Sink) Target() interface{} {
	switch s.kind {
	case path:
		return s.path
	case file:
		return s.file
	case stream:
		return s.w
	default:
		return nil
	}
}

// Body finishes writing and returns a reader over everything written.
// A file path sink is created even if nothing was written, and is
// reopened for reading. A stream which cannot be read back yields an
// empty body.
func (s *Sink) Body() (io.ReadCloser, error) {
	switch s.kind {
	case memory:
		return io.NopCloser(bytes.NewReader(s.buf.Bytes())), nil
	case path:
		if err := s.create(); err != nil {
			return nil, err
		}
		if err := s.closeFile(); err != nil {
			return nil, err
		}
		f, err := os.Open(s.path)
		if err != nil {
			return nil, errors.Wrapf(err, "httpstack/sink: cannot reopen %s", s.path)
		}
		return f, nil
	case file:
		return io.NopCloser(io.NewSectionReader(s.file, s.start, s.n)), nil
	default:
		if rs, ok := s.w.(io.ReadSeeker); ok {
			if _, err := rs.Seek(s.start, io.SeekStart); err != nil {
				return nil, errors.Wrap(err, "httpstack/sink: cannot rewind stream")
			}
			return io.NopCloser(io.LimitReader(rs, s.n)), nil
		}
		return http.NoBody, nil
	}
}

// Abort discards the sink after a failed transfer. A file created from a
// path is removed. Caller-supplied files and streams are left alone.
func (s *Sink) Abort() {
	if s.kind != path {
		return
	}
	created := s.file != nil
	_ = s.closeFile()
	if created {
		_ = os.Remove(s.path)
	}
}

func (s *Sink) closeFile() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return errors.Wrapf(err, "httpstack/sink: cannot close %s", s.path)
}
