/**
 * Copyright (c) 2018, The Artemis Authors.
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
	"fmt"

	"github.com/pkg/errors"

	"github.com/corvidql/corvid/concurrent/deferred"
	"github.com/corvidql/corvid/graphql"
)

// parentFieldType returns the runtime Object type whose selection set node's field belongs to.
func parentFieldType(ctx *ExecutionContext, node *ExecutionNode) graphql.Object {
	if node.ParentType != nil {
		return node.ParentType
	}
	return ctx.Operation().RootType()
}

// newResolveInfo builds the graphql.ResolveInfo passed to a field's resolver and any middleware
// wrapping it.
func newResolveInfo(ctx *ExecutionContext, node *ExecutionNode, result *ResultNode) *ResolveInfo {
	return &ResolveInfo{
		ExecutionContext: ctx,
		ExecutionNode:    node,
		ResultNode:       result,
		ParentType:       parentFieldType(ctx, node),
		ctx:              ctx.Context(),
	}
}

// resolveNode invokes the resolver for node (falling back to the operation's default field resolver
// when the field doesn't declare one), threading the call through ctx.Middleware() when one is
// configured. The returned Deferred settles with whatever the resolver (or the innermost
// middleware) produced, which may itself still require value completion (it could be a list, an
// object, or another Deferred returned by an asynchronous resolver).
//
// Panics raised by resolver or middleware code are recovered here and reported as a rejected
// Deferred rather than taking down the goroutine driving execution, mirroring how a single bad
// field shouldn't prevent the rest of the response from being produced.
func resolveNode(ctx *ExecutionContext, node *ExecutionNode, result *ResultNode, source interface{}) (d *deferred.Deferred) {
	resolver := node.Field.Resolver()
	if resolver == nil {
		resolver = ctx.Operation().DefaultFieldResolver()
	}

	info := newResolveInfo(ctx, node, result)

	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			err = errors.Wrapf(err, "panic while resolving field %q", node.ResponseKey())
			ctx.Logger().WithField("path", result.Path().String()).WithError(err).
				Errorf("An error occurred while resolving field %s.%s", parentFieldType(ctx, node).Name(), node.ResponseKey())
			d = deferred.Rejected(err)
			if ctx.ExceptionsAreReraised() {
				panic(err)
			}
		}
	}()

	var (
		value interface{}
		err   error
	)
	if middleware := ctx.Middleware(); middleware != nil {
		value, err = middleware.Resolve(ctx.Context(), source, info, &MiddlewareNext{resolver: resolver})
	} else {
		value, err = resolver.Resolve(ctx.Context(), source, info)
	}

	if err != nil {
		return deferred.Rejected(err)
	}
	return deferred.Resolved(value)
}

// executeNode resolves node's value given source, writes the result into result (following
// graphql's value completion rules), and returns a Deferred that settles once result and every
// descendant reachable from it have finished — whether that happens synchronously in this call or
// later, after chaining through a Deferred returned by a resolver.
//
// executeNode never itself returns an error; failures are folded into result and ctx.Errors() via
// handleNodeError, per the "field errors are recorded, not propagated to the caller" execution
// model.
func executeNode(ctx *ExecutionContext, node *ExecutionNode, result *ResultNode, source interface{}) *deferred.Deferred {
	out, resolve, _ := deferred.New()

	resolveNode(ctx, node, result, source).Then(
		func(value interface{}) {
			completeValue(ctx, node, node.Field.Type(), result, value).Then(
				func(interface{}) { resolve(nil) },
				func(error) { resolve(nil) },
			)
		},
		func(err error) {
			handleNodeError(ctx, node, result, err)
			resolve(nil)
		},
	)

	return out
}

// handleNodeError records err as a field error attached to node's location and result's response
// path, then nulls out result (and bubbles the nil up through non-null ancestors).
func handleNodeError(ctx *ExecutionContext, node *ExecutionNode, result *ResultNode, err error) {
	locations := make([]graphql.ErrorLocation, len(node.Definitions))
	for i := range node.Definitions {
		locations[i] = graphql.ErrorLocationOfASTNode(node.Definitions[i])
	}

	path := result.Path()

	e, ok := err.(*graphql.Error)
	if !ok {
		e = graphql.NewError(err.Error(), locations, path).(*graphql.Error)
	} else {
		e.Locations = locations
		e.Path = path
	}

	ctx.nullifyNode(result)
	ctx.AppendError(e)
}
