// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
	"golang.org/x/net/idna"
)

const (
	// RedirectHistoryHeader lists, on the final response, every URL a
	// redirect chain visited, when track_redirects is enabled.
	RedirectHistoryHeader = "X-Redirect-History"
	// RedirectStatusHistoryHeader lists, on the final response, the
	// status code of every redirect response in the chain, when
	// track_redirects is enabled.
	RedirectStatusHistoryHeader = "X-Redirect-Status-History"
)

// Redirect returns a middleware which follows redirect responses as
// configured by the allow_redirects option. See
// request.RedirectOptions.
//
// A response is a redirect if its status is 3XX and it has a Location
// header. The redirect is sent through the wrapped handler with the
// same options. A 303 redirect switches to GET, without a body, unless
// the method is HEAD. A 301 or 302 redirect does the same for methods
// other than GET and HEAD, unless the strict option is set. Other
// redirects resend the original method and body; if the body cannot be
// rewound the promise is rejected with an *httperr.SeekError.
func Redirect() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			ro, enabled, err := opts.Redirect()
			if err != nil {
				panic(err)
			}
			if !enabled {
				return next.Handle(req, opts)
			}
			r := &redirector{next: next, opts: opts, ro: ro}
			return r.send(req)
		})
	}
}

// A redirector follows one redirect chain.
type redirector struct {
	next     Handler
	opts     request.Options
	ro       request.RedirectOptions
	count    int
	history  []string
	statuses []string
}

func (r *redirector) send(req *http.Request) *promise.Promise {
	return r.next.Handle(req, r.opts).Then(func(resp *http.Response, err error) *promise.Promise {
		if err != nil {
			return nil
		}
		return r.check(req, resp)
	})
}

func (r *redirector) check(req *http.Request, resp *http.Response) *promise.Promise {
	if resp.StatusCode/100 != 3 || resp.Header.Get("Location") == "" {
		if r.ro.TrackRedirects && len(r.history) > 0 {
			return promise.Fulfilled(r.withHistory(resp))
		}
		return nil
	}

	r.count++
	if r.count > r.ro.Max {
		return promise.Rejected(httperr.NewTooManyRedirectsError(req, resp, r.ro.Max))
	}

	next, err := r.redirectRequest(req, resp)
	if err != nil {
		return promise.Rejected(err)
	}
	if r.ro.OnRedirect != nil {
		r.ro.OnRedirect(req, resp, next.URL)
	}
	if r.ro.TrackRedirects {
		r.history = append(r.history, next.URL.String())
		r.statuses = append(r.statuses, strconv.Itoa(resp.StatusCode))
	}
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
	return r.send(next)
}

func (r *redirector) withHistory(resp *http.Response) *http.Response {
	resp2 := new(http.Response)
	*resp2 = *resp
	resp2.Header = resp.Header.Clone()
	if resp2.Header == nil {
		resp2.Header = make(http.Header)
	}
	resp2.Header[RedirectHistoryHeader] = append([]string(nil), r.history...)
	resp2.Header[RedirectStatusHistoryHeader] = append([]string(nil), r.statuses...)
	return resp2
}

// redirectRequest builds the request which follows resp.
func (r *redirector) redirectRequest(req *http.Request, resp *http.Response) (*http.Request, error) {
	target, err := req.URL.Parse(resp.Header.Get("Location"))
	if err != nil {
		return nil, httperr.NewBadResponseError(
			fmt.Sprintf("Redirect URI, %s, is not valid", resp.Header.Get("Location")),
			req, resp, err)
	}
	if !r.ro.Allows(target.Scheme) {
		return nil, httperr.NewBadResponseError(
			fmt.Sprintf("Redirect URI, %s, does not use one of the allowed redirect protocols: %s",
				target, strings.Join(r.ro.Protocols, ", ")),
			req, resp, nil)
	}

	var next *http.Request
	if r.switchToGet(req.Method, resp.StatusCode) {
		next = request.DropBody(req)
		next.Method = http.MethodGet
	} else if next, err = request.Rewind(req); err != nil {
		return nil, err
	}
	next.URL = target
	next.Host = target.Host

	if r.ro.Referer && !(req.URL.Scheme == "https" && target.Scheme != "https") {
		referer := *req.URL
		referer.User = nil
		referer.Fragment = ""
		next.Header.Set("Referer", referer.String())
	} else {
		next.Header.Del("Referer")
	}

	if !sameOrigin(req.URL, target) {
		for _, name := range r.ro.OriginHeaders {
			next.Header.Del(name)
		}
	}
	return next, nil
}

func (r *redirector) switchToGet(method string, status int) bool {
	switch {
	case status == http.StatusSeeOther:
		return method != http.MethodHead
	case status <= http.StatusFound && !r.ro.Strict:
		return method != http.MethodGet && method != http.MethodHead
	default:
		return false
	}
}

// sameOrigin reports whether a and b share scheme, host and port. Host
// names are compared in their ASCII form, and an omitted port is the
// scheme's default.
func sameOrigin(a, b *url.URL) bool {
	if !strings.EqualFold(a.Scheme, b.Scheme) || effectivePort(a) != effectivePort(b) {
		return false
	}
	return asciiHost(a.Hostname()) == asciiHost(b.Hostname())
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

func asciiHost(host string) string {
	if h, err := idna.Lookup.ToASCII(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}
