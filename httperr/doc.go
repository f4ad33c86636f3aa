// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httperr defines the errors used to reject the promises returned
by handlers and middleware.

Every transfer failure is a RequestError, or one of the types embedding
it:

• ConnectError: the connection was never established, so there is no
response;

• BadResponseError: a complete response was received but it is not
acceptable, specialized as ClientError (4XX) and ServerError (5XX) by
the HTTP error mapping middleware;

• TooManyRedirectsError: a redirect chain exceeded its maximum length.

Use errors.As to test for a family, since the specialized types convert
to their base types:

	var re *httperr.RequestError
	if errors.As(err, &re) {
		log.Printf("failed %s %s", re.Request.Method, re.Request.URL)
	}

SeekError, InvalidArgumentError and OutOfItemsError describe problems
which are not caused by the remote server: an unrewindable request body,
a malformed configuration, and an exhausted mock queue.
*/
package httperr
