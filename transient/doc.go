// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient sorts the errors a handler rejects with into
// transience categories. A transient error is one where sending the same
// request again has a fair chance of succeeding, which makes the
// category the main input to retry deciders.
//
// Categorize understands the httpstack error taxonomy: a
// *httperr.ConnectError which is not more precisely a timeout, a refusal
// or a reset falls into the Connect category.
package transient
