/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package deferred provides Deferred, a push-based "asynchronous value" that a field resolver may
// return in place of an already-available one.
//
// A Deferred is driven by its producer rather than polled by its consumer. The producer calls
// Resolve or Reject exactly once. Subscribers registered via Then before that call are notified,
// synchronously, from the goroutine that performs the resolution; a subscriber registered after it
// is notified at once on the goroutine that calls Then. There is no scheduler and no polling loop:
// the call to Resolve is the notification.
//
// This mirrors the Promise abstraction used by the reference implementation this package's
// consumers are modeled on (see MiddlewareManager and the field resolver driver), where a resolver
// can return a promise-like value and the engine chains onto it with Then instead of re-entering a
// poll loop.
package deferred

import "sync"

// state describes where a Deferred is in its lifecycle. A Deferred moves monotonically from
// pending to exactly one of ready or rejected, and never moves again.
type state int

const (
	pending state = iota
	ready
	rejected
)

// subscriber holds the pair of callbacks registered through Then while the Deferred is pending.
type subscriber struct {
	onReady func(value interface{})
	onErr   func(err error)
}

// Deferred is an asynchronous value that settles, at most once, to either a value or an error.
// It is safe for concurrent use: Resolve, Reject and Then may all be called from different
// goroutines.
//
// The zero value is not usable; construct one with New, Resolve, or Reject.
type Deferred struct {
	mutex sync.Mutex

	st  state
	val interface{}
	err error

	// subscribers accumulated while st == pending. Drained (and nilled) the moment the Deferred
	// settles.
	subscribers []subscriber
}

// New creates a Deferred that is not yet settled, along with the resolve and reject functions that
// settle it. This is the common entry point for producers: e.g. a field resolver kicking off a
// goroutine to do the actual work.
//
//	d, resolve, reject := deferred.New()
//	go func() {
//		v, err := doWork()
//		if err != nil {
//			reject(err)
//			return
//		}
//		resolve(v)
//	}()
//	return d, nil
func New() (d *Deferred, resolve func(interface{}), reject func(error)) {
	d = &Deferred{}
	return d, d.resolve, d.reject
}

// Resolved returns a Deferred that is already settled with value. Useful for adapting a
// synchronously-available value to code that expects a Deferred.
func Resolved(value interface{}) *Deferred {
	d := &Deferred{}
	d.resolve(value)
	return d
}

// Rejected returns a Deferred that is already settled with err.
func Rejected(err error) *Deferred {
	d := &Deferred{}
	d.reject(err)
	return d
}

// IsDeferred reports whether value is a *Deferred, returning it as such if so. Callers that accept
// "a value or a Deferred of a value" (e.g. the output coercer completing a field) use this to
// decide whether to recurse synchronously or chain with Then.
func IsDeferred(value interface{}) (*Deferred, bool) {
	d, ok := value.(*Deferred)
	return d, ok
}

// resolve settles d with value, unless it is already settled, in which case the call is a no-op.
// If value is itself a *Deferred, d is chained onto it instead of wrapping it (flattening), so
// callers of Then never have to unwrap nested Deferreds themselves.
func (d *Deferred) resolve(value interface{}) {
	if inner, ok := value.(*Deferred); ok {
		inner.Then(d.resolve, d.reject)
		return
	}

	d.mutex.Lock()
	if d.st != pending {
		d.mutex.Unlock()
		return
	}
	d.st = ready
	d.val = value
	subscribers := d.subscribers
	d.subscribers = nil
	d.mutex.Unlock()

	for _, s := range subscribers {
		if s.onReady != nil {
			s.onReady(value)
		}
	}
}

// reject settles d with err, unless it is already settled.
func (d *Deferred) reject(err error) {
	d.mutex.Lock()
	if d.st != pending {
		d.mutex.Unlock()
		return
	}
	d.st = rejected
	d.err = err
	subscribers := d.subscribers
	d.subscribers = nil
	d.mutex.Unlock()

	for _, s := range subscribers {
		if s.onErr != nil {
			s.onErr(err)
		}
	}
}

// Then registers onReady and onErr to be called once d settles. Exactly one of the two is called,
// with the final value or error. If d has already settled, the applicable callback runs
// immediately, on the calling goroutine, before Then returns.
//
// Either callback may be nil, in which case that outcome is silently ignored (useful when a caller
// only cares about one side, e.g. Await below only cares about both but a fire-and-forget consumer
// might only register onErr for logging).
func (d *Deferred) Then(onReady func(value interface{}), onErr func(err error)) {
	d.mutex.Lock()
	switch d.st {
	case ready:
		val := d.val
		d.mutex.Unlock()
		if onReady != nil {
			onReady(val)
		}
		return
	case rejected:
		err := d.err
		d.mutex.Unlock()
		if onErr != nil {
			onErr(err)
		}
		return
	}

	d.subscribers = append(d.subscribers, subscriber{onReady, onErr})
	d.mutex.Unlock()
}

// Map returns a new Deferred that settles with f(value) once d settles with a value, or with d's
// error if d is rejected.
func (d *Deferred) Map(f func(value interface{}) interface{}) *Deferred {
	out := &Deferred{}
	d.Then(func(value interface{}) {
		out.resolve(f(value))
	}, out.reject)
	return out
}

// Await blocks the calling goroutine until d settles and returns its outcome. It exists for tests
// and for call sites (such as a CLI's one-shot request or the setup of a subscription stream) that
// have no further work to interleave while waiting. Calling it from within a resolver chain would
// block a goroutine that may itself be needed to produce the value being waited on.
func (d *Deferred) Await() (interface{}, error) {
	type outcome struct {
		value interface{}
		err   error
	}
	done := make(chan outcome, 1)
	d.Then(
		func(value interface{}) { done <- outcome{value: value} },
		func(err error) { done <- outcome{err: err} },
	)
	o := <-done
	return o.value, o.err
}

// All returns a Deferred that settles with a []interface{} of every input's value, in the same
// order, once all of them have resolved. It settles with the first error observed from any input
// (subsequent settlements, successful or not, are ignored for the purpose of All's own outcome,
// though each input Deferred still only settles once per its own rules).
func All(ds ...*Deferred) *Deferred {
	out := &Deferred{}
	if len(ds) == 0 {
		out.resolve([]interface{}{})
		return out
	}

	var (
		mutex     sync.Mutex
		results   = make([]interface{}, len(ds))
		remaining = len(ds)
	)

	for i, one := range ds {
		i := i
		one.Then(func(value interface{}) {
			mutex.Lock()
			results[i] = value
			remaining--
			done := remaining == 0
			mutex.Unlock()
			if done {
				out.resolve(results)
			}
		}, func(err error) {
			out.reject(err)
		})
	}

	return out
}
