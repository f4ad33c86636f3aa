// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout provides policies which choose the timeout option of
// each attempt made by the httpstack Retry middleware. A zero timeout
// means the attempt may take as long as it needs.
package timeout
