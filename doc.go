// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httpstack provides a composable, promise-based HTTP client built
from a stack of middleware around a transport handler.

Create a Client to begin making requests.

	client := &httpstack.Client{}
	defer client.Close()
	resp, err := client.Get("https://www.example.com")
	...
	resp, err := client.Post("https://www.example.com/upload",
		"application/json", &buf)
	...
	resp, err := client.PostForm("http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

Every request goes through a Handler, which returns a *promise.Promise
instead of blocking. Send returns the promise; Do waits for it.

	p := client.Send(req, request.Options{request.Timeout: 5 * time.Second})
	p.Then(func(resp *http.Response, err error) *promise.Promise {
		...
		return nil
	})
	resp, err := p.Wait()

A Stack composes named Middleware around a terminal Handler, normally a
*transport.Handler. NewDefaultStack installs the http_errors,
allow_redirects, cookies and prepare_body middleware. Add your own:

	stack := httpstack.NewDefaultStack(&transport.Handler{})
	stack.Push(httpstack.Retry(retry.DefaultPolicy, timeout.Fixed(10*time.Second)), "retry")
	stack.Unshift(httpstack.Log(logrus.StandardLogger(), nil, logrus.InfoLevel), "log")
	client := &httpstack.Client{Handler: stack}

Behaviour is steered per request by options; package request lists the
recognized keys. Options a middleware does not understand are passed
through untouched.

To hook into the retry loop, register a Listener on a ListenerGroup and
hand it to a Retrier:

	listeners := &httpstack.ListenerGroup{}
	listeners.PushBack(httpstack.BeforeAttempt, httpstack.ListenerFunc(
		func(_ httpstack.Event, e *request.Execution) {
			log.Printf("Attempt %d to %s", e.Attempt, e.Request.URL)
		}),
	)
	r := &httpstack.Retrier{Listeners: listeners}
	stack.Push(r.Middleware(), "retry")

A Config loads the same setup from YAML.

Package httpstack also provides basic interfaces for each method of the
client (Sender, Doer, Getter, Header, Poster and FormPoster); a combined
interface (Executor); and utility functions for working with a Doer
(Inflate, Get, Head, Post and PostForm).
*/
package httpstack
