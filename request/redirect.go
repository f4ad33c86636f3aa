// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"math"
	"net/http"
	"net/url"
	"reflect"

	"github.com/gogama/httpstack/httperr"
)

// RedirectOptions configures how the redirect middleware follows
// redirect responses.
//
// The allow_redirects option may hold: false (do not follow); true (use
// DefaultRedirect); a RedirectOptions or *RedirectOptions; or a
// map[string]interface{} using the keys "max", "strict", "referer",
// "protocols", "track_redirects", "on_redirect" and "origin_headers",
// whose values override DefaultRedirect. In both forms a Max of zero or
// less means DefaultRedirect.Max.
type RedirectOptions struct {
	// Max is the maximum number of redirects followed for one request.
	Max int
	// Strict preserves the method and body on 301 and 302 redirects
	// instead of switching to GET.
	Strict bool
	// Referer adds a Referer header when following a redirect, except
	// when going from https to http.
	Referer bool
	// Protocols lists the URI schemes a redirect may target.
	Protocols []string
	// TrackRedirects records the redirect chain in the
	// X-Redirect-History and X-Redirect-Status-History headers of the
	// final response.
	TrackRedirects bool
	// OnRedirect, if not nil, is called with the request, the redirect
	// response, and the resolved target just before the redirect is
	// followed.
	OnRedirect func(req *http.Request, resp *http.Response, target *url.URL)
	// OriginHeaders lists the credential-carrying request headers
	// removed when a redirect crosses to another scheme, host or port.
	// An omitted port equals the scheme's default port.
	OriginHeaders []string
}

// DefaultRedirect is used when allow_redirects is true, and provides
// the defaults for the map form.
var DefaultRedirect = RedirectOptions{
	Max:           5,
	Protocols:     []string{"http", "https"},
	OriginHeaders: []string{"Authorization"},
}

// Redirect returns the redirect configuration stored in the
// allow_redirects option. The enabled return value is false if the
// option is missing or false.
func (o Options) Redirect() (ro RedirectOptions, enabled bool, err error) {
	switch v := o[AllowRedirects].(type) {
	case nil:
		return RedirectOptions{}, false, nil
	case bool:
		if !v {
			return RedirectOptions{}, false, nil
		}
		return DefaultRedirect, true, nil
	case RedirectOptions:
		return v.withDefaults(), true, nil
	case *RedirectOptions:
		if v == nil {
			return RedirectOptions{}, false, nil
		}
		return v.withDefaults(), true, nil
	case map[string]interface{}:
		ro, err = redirectFromMap(v)
		return ro, err == nil, err
	default:
		return RedirectOptions{}, false, httperr.InvalidArgument("httpstack/request: allow_redirects must be a bool, RedirectOptions or map, got %T", v)
	}
}

func (ro RedirectOptions) withDefaults() RedirectOptions {
	if ro.Max <= 0 {
		ro.Max = DefaultRedirect.Max
	}
	if len(ro.Protocols) == 0 {
		ro.Protocols = DefaultRedirect.Protocols
	}
	if ro.OriginHeaders == nil {
		ro.OriginHeaders = DefaultRedirect.OriginHeaders
	}
	return ro
}

func redirectFromMap(m map[string]interface{}) (RedirectOptions, error) {
	ro := DefaultRedirect
	for k, v := range m {
		ok := true
		switch k {
		case "max":
			ro.Max, ok = intValue(v)
		case "strict":
			ro.Strict, ok = v.(bool)
		case "referer":
			ro.Referer, ok = v.(bool)
		case "track_redirects":
			ro.TrackRedirects, ok = v.(bool)
		case "protocols":
			ro.Protocols, ok = v.([]string)
		case "origin_headers":
			ro.OriginHeaders, ok = v.([]string)
		case "on_redirect":
			if v != nil {
				ro.OnRedirect, ok = v.(func(*http.Request, *http.Response, *url.URL))
			}
		}
		if !ok {
			return RedirectOptions{}, httperr.InvalidArgument("httpstack/request: allow_redirects %q has invalid type %T", k, v)
		}
	}
	if ro.Max <= 0 {
		ro.Max = DefaultRedirect.Max
	}
	return ro, nil
}

// intValue converts any integer kind, or a float with no fractional
// part, to an int. Decoded configuration yields int64 or float64.
func intValue(v interface{}) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		return int(n), n >= math.MinInt && n <= math.MaxInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n := rv.Uint()
		return int(n), n <= math.MaxInt
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt || f >= math.MaxInt {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// Allows reports whether scheme is one of the allowed protocols.
func (ro RedirectOptions) Allows(scheme string) bool {
	for _, p := range ro.Protocols {
		if p == scheme {
			return true
		}
	}
	return false
}
