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

package executor

import (
	"context"
	"fmt"

	"github.com/corvidql/corvid/graphql"
)

// Middleware wraps invocation of a field's resolver, observing or replacing its arguments and
// result. It calls next.Resolve to continue on to the next middleware in the chain (and
// eventually the field's own resolver); a middleware that never calls next.Resolve short-circuits
// the field, producing its own value (or error) without running the resolver at all.
type Middleware interface {
	Resolve(ctx context.Context, source interface{}, info graphql.ResolveInfo, next *MiddlewareNext) (interface{}, error)
}

// MiddlewareFunc is an adapter to allow ordinary functions to be used as Middleware.
type MiddlewareFunc func(ctx context.Context, source interface{}, info graphql.ResolveInfo, next *MiddlewareNext) (interface{}, error)

// Resolve calls f(ctx, source, info, next).
func (f MiddlewareFunc) Resolve(ctx context.Context, source interface{}, info graphql.ResolveInfo, next *MiddlewareNext) (interface{}, error) {
	return f(ctx, source, info, next)
}

// MiddlewareNext carries the remaining middleware (and, past the last one, the field's resolver)
// for a Middleware to continue into. A MiddlewareNext is good for exactly one call to Resolve;
// calling it a second time panics, since resolving the same field twice through the same chain
// would run resolvers with side effects (data loader loads, mutations) more than once.
type MiddlewareNext struct {
	middlewares []Middleware
	resolver    graphql.FieldResolver

	// index of the middleware to run when Resolve is next called.
	index int

	// called guards against a middleware invoking Resolve more than once.
	called bool
}

// Resolve runs the next middleware in the chain, or the field's resolver once every middleware has
// run.
func (next *MiddlewareNext) Resolve(ctx context.Context, source interface{}, info graphql.ResolveInfo) (interface{}, error) {
	if next.called {
		panic("graphql: MiddlewareNext.Resolve called more than once for the same field")
	}
	next.called = true

	if next.index >= len(next.middlewares) {
		return next.resolver.Resolve(ctx, source, info)
	}

	middleware := next.middlewares[next.index]
	return middleware.Resolve(ctx, source, info, &MiddlewareNext{
		middlewares: next.middlewares,
		resolver:    next.resolver,
		index:       next.index + 1,
	})
}

// middlewareManager composes a fixed list of Middleware and a terminal resolver into a single
// Middleware-shaped entry point.
type middlewareManager struct {
	middlewares []Middleware
}

// MiddlewareManager composes m1, ..., mn into a single Middleware where m1 is outermost: it runs
// first and, if it calls next.Resolve, control passes to m2, then m3, and so on, with the last
// middleware's next.Resolve finally invoking the field's own resolver.
//
// Calling MiddlewareManager with no arguments returns nil, which resolveNode treats the same as
// "no middleware configured".
func MiddlewareManager(middlewares ...Middleware) Middleware {
	if len(middlewares) == 0 {
		return nil
	}
	return &middlewareManager{middlewares: middlewares}
}

// Resolve implements Middleware. It ignores the outer next (MiddlewareManager is meant to be
// installed as the sole, top-level middleware for an execution; see ExecuteParams.Middleware) and
// instead resolves the field by threading it through manager.middlewares ending at next.resolver.
func (manager *middlewareManager) Resolve(ctx context.Context, source interface{}, info graphql.ResolveInfo, next *MiddlewareNext) (interface{}, error) {
	if next == nil || next.resolver == nil {
		return nil, fmt.Errorf("graphql: MiddlewareNext with a resolver is required to run a MiddlewareManager")
	}
	return (&MiddlewareNext{
		middlewares: manager.middlewares,
		resolver:    next.resolver,
	}).Resolve(ctx, source, info)
}
