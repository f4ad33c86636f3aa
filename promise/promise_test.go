// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package promise

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromise_Settle(t *testing.T) {
	t.Run("fulfill", func(t *testing.T) {
		p := New(nil, nil)
		assert.Equal(t, StatePending, p.State())
		resp := &http.Response{StatusCode: 200}
		assert.True(t, p.Fulfill(resp))
		assert.False(t, p.Fulfill(&http.Response{}))
		assert.False(t, p.Reject(errors.New("foo")))
		assert.Equal(t, StateFulfilled, p.State())
		r, err := p.Result()
		assert.Same(t, resp, r)
		assert.NoError(t, err)
		select {
		case <-p.Done():
		default:
			t.Fatal("done channel not closed")
		}
	})
	t.Run("reject", func(t *testing.T) {
		err := errors.New("foo")
		p := Rejected(err)
		assert.Equal(t, StateRejected, p.State())
		assert.Equal(t, "rejected", p.State().String())
		_, err2 := p.Wait()
		assert.Same(t, err, err2)
	})
	t.Run("constructors and states", func(t *testing.T) {
		assert.Equal(t, StateFulfilled, Fulfilled(&http.Response{}).State())
		assert.Equal(t, StateRejected, Rejected(errors.New("bar")).State())
		assert.Equal(t, "pending", StatePending.String())
		assert.Equal(t, "fulfilled", StateFulfilled.String())
		assert.Equal(t, "rejected", StateRejected.String())
	})
	t.Run("nil rejection", func(t *testing.T) {
		assert.PanicsWithValue(t, "httpstack/promise: nil rejection", func() {
			New(nil, nil).Reject(nil)
		})
	})
}

func TestPromise_OnSettle(t *testing.T) {
	var calls []string
	p := New(nil, nil)
	p.OnSettle(func(_ *http.Response, _ error) { calls = append(calls, "1") })
	p.OnSettle(func(_ *http.Response, _ error) { calls = append(calls, "2") })
	assert.Empty(t, calls)
	p.Fulfill(&http.Response{})
	assert.Equal(t, []string{"1", "2"}, calls)
	p.OnSettle(func(_ *http.Response, _ error) { calls = append(calls, "3") })
	assert.Equal(t, []string{"1", "2", "3"}, calls)
}

func TestPromise_Then(t *testing.T) {
	t.Run("nil continuation result forwards outcome", func(t *testing.T) {
		p := New(nil, nil)
		q := p.Then(func(_ *http.Response, _ error) *Promise { return nil })
		resp := &http.Response{StatusCode: 201}
		p.Fulfill(resp)
		r, err := q.Wait()
		assert.Same(t, resp, r)
		assert.NoError(t, err)
	})
	t.Run("adopts returned promise", func(t *testing.T) {
		p := New(nil, nil)
		inner := New(nil, nil)
		q := p.Then(func(_ *http.Response, _ error) *Promise { return inner })
		p.Fulfill(&http.Response{StatusCode: 302})
		assert.Equal(t, StatePending, q.State())
		resp := &http.Response{StatusCode: 200}
		inner.Fulfill(resp)
		r, _ := q.Result()
		assert.Same(t, resp, r)
	})
	t.Run("recovers rejection", func(t *testing.T) {
		q := Rejected(errors.New("foo")).Then(func(_ *http.Response, err error) *Promise {
			return Fulfilled(&http.Response{StatusCode: 204})
		})
		r, err := q.Wait()
		require.NoError(t, err)
		assert.Equal(t, 204, r.StatusCode)
	})
	t.Run("cancel stops continuation", func(t *testing.T) {
		cancelled := false
		p := New(nil, func() { cancelled = true })
		called := false
		q := p.Then(func(_ *http.Response, _ error) *Promise {
			called = true
			return nil
		})
		q.Cancel()
		assert.True(t, cancelled)
		assert.Equal(t, StateRejected, p.State())
		assert.False(t, called)
		_, err := q.Wait()
		assert.Same(t, ErrCancelled, err)
	})
	t.Run("cancel reaches adopted promise", func(t *testing.T) {
		p := New(nil, nil)
		innerCancelled := false
		inner := New(nil, func() { innerCancelled = true })
		q := p.Then(func(_ *http.Response, _ error) *Promise { return inner })
		p.Fulfill(&http.Response{})
		q.Cancel()
		assert.True(t, innerCancelled)
		assert.Equal(t, StateRejected, inner.State())
	})
}

func TestPromise_Map(t *testing.T) {
	q := Fulfilled(&http.Response{StatusCode: 200}).Map(func(r *http.Response) (*http.Response, error) {
		r2 := *r
		r2.StatusCode = 299
		return &r2, nil
	})
	r, err := q.Wait()
	require.NoError(t, err)
	assert.Equal(t, 299, r.StatusCode)

	expected := errors.New("bar")
	_, err = Fulfilled(&http.Response{}).Map(func(r *http.Response) (*http.Response, error) {
		return nil, expected
	}).Wait()
	assert.Same(t, expected, err)

	called := false
	_, err = Rejected(expected).Map(func(r *http.Response) (*http.Response, error) {
		called = true
		return r, nil
	}).Wait()
	assert.Same(t, expected, err)
	assert.False(t, called)
}

func TestPromise_Wait(t *testing.T) {
	t.Run("drives driver", func(t *testing.T) {
		d := &countingDriver{}
		p := New(d, nil)
		d.onTick = func(n int) {
			if n == 3 {
				p.Fulfill(&http.Response{StatusCode: 200})
			}
		}
		r, err := p.Wait()
		require.NoError(t, err)
		assert.Equal(t, 200, r.StatusCode)
		assert.Equal(t, 3, d.ticks)
	})
	t.Run("settled elsewhere", func(t *testing.T) {
		p := New(nil, nil)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(10 * time.Millisecond)
			p.Reject(errors.New("late"))
		}()
		_, err := p.Wait()
		assert.EqualError(t, err, "late")
		wg.Wait()
	})
	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		p := New(nil, nil)
		_, err := p.WaitContext(ctx)
		assert.Equal(t, context.DeadlineExceeded, err)
		assert.Equal(t, StatePending, p.State())
	})
}

type countingDriver struct {
	ticks  int
	onTick func(n int)
}

func (d *countingDriver) Tick(_ time.Duration) bool {
	d.ticks++
	d.onTick(d.ticks)
	return true
}
