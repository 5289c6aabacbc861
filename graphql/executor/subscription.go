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
	"context"
	"fmt"

	"github.com/corvidql/corvid/concurrent/deferred"
	"github.com/corvidql/corvid/graphql"
)

// Source is an observable stream of subscription events. A subscription's root field resolver
// returns one (directly, or via a *deferred.Deferred that resolves to one) to drive per-event
// execution of the subscription's selection set.
//
// Reference: https://graphql.github.io/graphql-spec/June2018/#sec-Subscription
type Source interface {
	// Events returns a channel of successive source values. The channel must be closed once the
	// source is exhausted, and should close promptly when ctx is done.
	Events(ctx context.Context) <-chan SourceEvent
}

// SourceEvent is a single value (or error) yielded by a Source. An event carrying Err causes the
// corresponding response on the result stream to carry a request-level error instead of being run
// through the subscription's selection set.
type SourceEvent struct {
	Value interface{}
	Err   error
}

// runSubscription drives a subscription operation: it resolves the single root field to obtain its
// Source, then re-runs the subscription's selection set against each event the Source emits,
// writing one ExecutionResult to the returned channel per event. The channel closes once the
// Source's event channel closes.
func runSubscription(ctx *ExecutionContext) <-chan ExecutionResult {
	out := make(chan ExecutionResult, 1)

	childNodes, err := collectRootNodes(ctx)
	if err != nil {
		out <- ExecutionResult{Errors: graphql.ErrorsOf(err)}
		close(out)
		return out
	}

	// https://graphql.github.io/graphql-spec/June2018/#sec-Single-root-field
	if len(childNodes) != 1 {
		out <- ExecutionResult{Errors: graphql.ErrorsOf(
			"Subscription operation must have exactly one root field.")}
		close(out)
		return out
	}
	node := childNodes[0]

	source, err := createSourceEventStream(ctx, node)
	if err != nil {
		out <- ExecutionResult{Errors: graphql.ErrorsOf(err)}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		for event := range source.Events(ctx.Context()) {
			if event.Err != nil {
				out <- ExecutionResult{Errors: graphql.ErrorsOf(event.Err)}
				continue
			}
			out <- executeSubscriptionEvent(ctx, node, event.Value)
		}
	}()

	return out
}

// createSourceEventStream invokes node's resolver (through middleware, exactly like an ordinary
// field) and expects the result, once any returned Deferred settles, to be a Source. Resolving the
// stream itself happens once per subscription rather than once per event, so blocking here with
// Await is the one place in the execution engine where that's the right call; everywhere a value
// feeds back into the response tree, the push-based Then chain is used instead.
func createSourceEventStream(ctx *ExecutionContext, node *ExecutionNode) (Source, error) {
	result := &ResultNode{}
	value, err := resolveNode(ctx, node, result, ctx.RootValue()).Await()
	if err != nil {
		return nil, err
	}

	for {
		inner, ok := deferred.IsDeferred(value)
		if !ok {
			break
		}
		value, err = inner.Await()
		if err != nil {
			return nil, err
		}
	}

	source, ok := value.(Source)
	if !ok {
		return nil, fmt.Errorf(
			"subscription field %q must resolve to a Source, got %T", node.ResponseKey(), value)
	}
	return source, nil
}

// executeSubscriptionEvent completes node's selection set with eventValue standing in for the
// value the root field would otherwise have resolved to, following the normal value-completion path
// (§4.6/output_coercer.go), and packages the result. Each event gets its own ExecutionContext
// (sharing everything but the root value and error accumulator) so errors from one event never leak
// into another's response, and eventValue is completed rather than re-resolved so a fresh Source
// isn't created on every event.
func executeSubscriptionEvent(ctx *ExecutionContext, node *ExecutionNode, eventValue interface{}) ExecutionResult {
	eventCtx := ctx.forSubscriptionEvent(eventValue)

	nodeResults := make([]ResultNode, 1)
	rootResult := &ResultNode{
		Kind: ResultKindObject,
		Value: &ObjectResultValue{
			ExecutionNodes: []*ExecutionNode{node},
			FieldValues:    nodeResults,
		},
	}

	nodeResult := &nodeResults[0]
	nodeResult.Parent = rootResult
	nodeResult.Key = node.ResponseKey()
	if graphql.IsNonNullType(node.Field.Type()) {
		nodeResult.SetIsNonNull()
	}

	done := make(chan struct{})
	completeValue(eventCtx, node, node.Field.Type(), nodeResult, eventValue).Then(
		func(interface{}) { close(done) },
		func(error) { close(done) },
	)
	<-done

	return finalResult(eventCtx, rootResult)
}
