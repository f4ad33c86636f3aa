// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"net/http"
	"net/url"

	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
)

// Sender is the interface that wraps the basic Send method.
//
// Send sends a request with options and returns a promise of its
// response without blocking. Client implements the Sender interface.
type Sender interface {
	Send(req *http.Request, opts request.Options) *promise.Promise
}

// Doer is the interface that wraps the basic Do method.
//
// Do sends a request and blocks until its response, or error, is
// available. Client implements the Doer interface, and any other Doer
// implementation must behave substantially the same as Client.Do.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Getter is the interface that wraps the basic Get method.
//
// Get issues a GET to the specified URL. Any Doer can be used to
// emulate a Getter via the Get function.
type Getter interface {
	Get(url string) (*http.Response, error)
}

// Header is the interface that wraps the basic Head method.
//
// Head issues a HEAD to the specified URL. Any Doer can be used to
// emulate a Header via the Head function.
type Header interface {
	Head(url string) (*http.Response, error)
}

// Poster is the interface that wraps the basic Post method.
//
// Post issues a POST to the specified URL with the given content type
// and body. The body parameter may be any of the types supported by
// request.New. Any Doer can be used to emulate a Poster via the Post
// function.
type Poster interface {
	Post(url, contentType string, body interface{}) (*http.Response, error)
}

// FormPoster is the interface that wraps the basic PostForm method.
//
// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body, and the content type set to
// application/x-www-form-urlencoded. Any Doer can be used to emulate a
// FormPoster via the PostForm function.
type FormPoster interface {
	PostForm(url string, data url.Values) (*http.Response, error)
}

// Executor is the interface that groups the basic Do, Get, Head, Post
// and PostForm methods.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Executor interface {
	Doer
	Getter
	Header
	Poster
	FormPoster
}

// Get uses the specified Doer to issue a GET to the specified URL.
func Get(d Doer, url string) (*http.Response, error) {
	req, err := request.New("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(req)
}

// Head uses the specified Doer to issue a HEAD to the specified URL.
func Head(d Doer, url string) (*http.Response, error) {
	req, err := request.New("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(req)
}

// Post uses the specified Doer to issue a POST to the specified URL.
//
// The body parameter may be nil for an empty body, or any of the types
// supported by request.New.
func Post(d Doer, url, contentType string, body interface{}) (*http.Response, error) {
	req, err := request.New("POST", url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return d.Do(req)
}

// PostForm uses the specified Doer to issue a POST to the specified URL,
// with data's keys and values URL-encoded as the request body.
func PostForm(d Doer, url string, data url.Values) (*http.Response, error) {
	return Post(d, url, "application/x-www-form-urlencoded", data.Encode())
}

// Inflate converts any non-nil Doer into an Executor.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("httpstack: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(req *http.Request) (*http.Response, error) {
	return i.doer.Do(req)
}

func (i inflated) Get(url string) (*http.Response, error) {
	return Get(i.doer, url)
}

func (i inflated) Head(url string) (*http.Response, error) {
	return Head(i.doer, url)
}

func (i inflated) Post(url, contentType string, body interface{}) (*http.Response, error) {
	return Post(i.doer, url, contentType, body)
}

func (i inflated) PostForm(url string, data url.Values) (*http.Response, error) {
	return PostForm(i.doer, url, data)
}
