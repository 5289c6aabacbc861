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
	"io"

	"github.com/corvidql/corvid/concurrent"
	"github.com/corvidql/corvid/concurrent/deferred"
	"github.com/corvidql/corvid/graphql"
	"github.com/corvidql/corvid/jsonwriter"
)

// ExecutionResult contains the result of running a PreparedOperation.
type ExecutionResult struct {
	Data   *ResultNode
	Errors graphql.Errors
}

// MarshalJSONTo writes the JSON encoding of result to w. Prefer this over MarshalJSON/Marshal for
// writing straight to a response body; it avoids the intermediate []byte that encoding/json (and
// MarshalJSON below) would otherwise allocate.
func (result *ExecutionResult) MarshalJSONTo(w io.Writer) error {
	stream := jsonwriter.NewStream(w)
	stream.WriteValue(NewExecutionResultMarshaler(result))
	stream.WriteRawString("\n")
	return stream.Flush()
}

// MarshalJSON implements json.Marshaler for ExecutionResult.
func (result ExecutionResult) MarshalJSON() ([]byte, error) {
	return jsonwriter.Marshal(NewExecutionResultMarshaler(&result))
}

// runParallel executes ctx's operation's root selection set, resolving every root field without
// waiting on its siblings to finish first. This is used for queries and subscriptions, where root
// fields have no ordering requirement between them.
//
// Reference: https://graphql.github.io/graphql-spec/June2018/#sec-Executing-the-Selection-Set
func runParallel(ctx *ExecutionContext) <-chan ExecutionResult {
	out := make(chan ExecutionResult, 1)

	childNodes, err := collectRootNodes(ctx)
	if err != nil {
		out <- ExecutionResult{Errors: graphql.ErrorsOf(err)}
		close(out)
		return out
	}

	numChildNodes := len(childNodes)
	nodeResults := make([]ResultNode, numChildNodes)

	rootResult := &ResultNode{
		Kind: ResultKindObject,
		Value: &ObjectResultValue{
			ExecutionNodes: childNodes,
			FieldValues:    nodeResults,
		},
	}

	completions := make([]*deferred.Deferred, numChildNodes)
	for i, childNode := range childNodes {
		nodeResult := &nodeResults[i]
		nodeResult.Parent = rootResult
		nodeResult.Key = childNode.ResponseKey()
		if graphql.IsNonNullType(childNode.Field.Type()) {
			nodeResult.SetIsNonNull()
		}
		completions[i] = dispatchRootField(ctx, childNode, nodeResult)
	}
	drainDataLoaders(ctx)

	deferred.All(completions...).Then(
		func(interface{}) { out <- finalResult(ctx, rootResult); close(out) },
		func(error) { out <- finalResult(ctx, rootResult); close(out) },
	)

	return out
}

// dispatchRootField executes a single top-level field of a query or subscription. When
// ExecuteParams.Runner was supplied, the field runs as its own concurrent.Task so independent root
// fields make progress in parallel instead of one after another; otherwise it runs inline, same as
// any other field.
func dispatchRootField(ctx *ExecutionContext, node *ExecutionNode, result *ResultNode) *deferred.Deferred {
	runner := ctx.Runner()
	if runner == nil {
		return executeNode(ctx, node, result, ctx.RootValue())
	}

	out, resolve, reject := deferred.New()
	_, err := runner.Submit(concurrent.TaskFunc(func() (interface{}, error) {
		executeNode(ctx, node, result, ctx.RootValue()).Then(
			func(interface{}) { resolve(nil) },
			func(error) { resolve(nil) },
		)
		return nil, nil
	}))
	if err != nil {
		reject(err)
	}
	return out
}

// runSerial executes ctx's operation's root selection set one field at a time, in document order,
// waiting for each top-level field (and its whole subtree) to finish before starting the next. This
// is used for mutations, where root-level side effects must not race with one another.
//
// Reference: https://graphql.github.io/graphql-spec/June2018/#sec-Executing-Mutation-Operations
func runSerial(ctx *ExecutionContext) <-chan ExecutionResult {
	out := make(chan ExecutionResult, 1)

	childNodes, err := collectRootNodes(ctx)
	if err != nil {
		out <- ExecutionResult{Errors: graphql.ErrorsOf(err)}
		close(out)
		return out
	}

	numChildNodes := len(childNodes)
	nodeResults := make([]ResultNode, numChildNodes)

	rootResult := &ResultNode{
		Kind: ResultKindObject,
		Value: &ObjectResultValue{
			ExecutionNodes: childNodes,
			FieldValues:    nodeResults,
		},
	}

	var runNext func(i int)
	runNext = func(i int) {
		if i >= numChildNodes {
			out <- finalResult(ctx, rootResult)
			close(out)
			return
		}

		childNode := childNodes[i]
		nodeResult := &nodeResults[i]
		nodeResult.Parent = rootResult
		nodeResult.Key = childNode.ResponseKey()
		if graphql.IsNonNullType(childNode.Field.Type()) {
			nodeResult.SetIsNonNull()
		}

		executeNode(ctx, childNode, nodeResult, ctx.RootValue()).Then(
			func(interface{}) { runNext(i + 1) },
			func(error) { runNext(i + 1) },
		)
	}
	runNext(0)

	return out
}

// collectRootNodes collects the fields of ctx's operation's top-level selection set against the
// operation's root type.
func collectRootNodes(ctx *ExecutionContext) ([]*ExecutionNode, error) {
	return collectFields(ctx, &ExecutionNode{}, ctx.Operation().RootType())
}

// finalResult packages rootResult and every error accumulated in ctx into an ExecutionResult.
func finalResult(ctx *ExecutionContext, rootResult *ResultNode) ExecutionResult {
	return ExecutionResult{
		Data:   rootResult,
		Errors: ctx.Errors(),
	}
}
