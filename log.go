// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"errors"
	"net/http"

	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
	"github.com/sirupsen/logrus"
)

// Log returns a middleware which logs every exchange once it settles,
// formatted by f. Fulfilled exchanges are logged at level. Rejected
// exchanges are logged with the error, at level or at warning level if
// level is less severe.
//
// If f is nil, a Formatter using CLF is used.
func Log(logger logrus.FieldLogger, f *Formatter, level logrus.Level) Middleware {
	if logger == nil {
		panic("httpstack: nil logger")
	}
	if f == nil {
		f = NewFormatter(CLF)
	}
	failLevel := level
	if failLevel > logrus.WarnLevel {
		failLevel = logrus.WarnLevel
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			p := next.Handle(req, opts)
			p.OnSettle(func(resp *http.Response, err error) {
				entry := logger.WithFields(logrus.Fields{
					"method": req.Method,
					"url":    req.URL.Redacted(),
				})
				if err == nil {
					entry.WithField("status", resp.StatusCode).Log(level, f.Format(req, resp, nil))
					return
				}
				var re *httperr.RequestError
				if errors.As(err, &re) {
					resp = re.Response
				}
				entry.WithError(err).Log(failLevel, f.Format(req, resp, err))
			})
			return p
		})
	}
}
