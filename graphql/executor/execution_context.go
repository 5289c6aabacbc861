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
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/corvidql/corvid/concurrent"
	"github.com/corvidql/corvid/graphql"
	"github.com/corvidql/corvid/graphql/internal/value"
)

// An ExecutionContext contains data which are required for an Executor to fulfill a request for
// exeuction. The context includes the operation to execute, variables supplied and request-specific
// values, etc..
type ExecutionContext struct {
	// Context for the execution
	ctx context.Context

	// operation being executed.
	operation *PreparedOperation

	// rootValue is the "source" data for the top level field ("root fields").
	rootValue interface{}

	// appContext contains application-specific data which will get passed to all resolve functions.
	appContext interface{}

	// variableValues contains values to the parameters in current query. The values has passed input
	// coercion.
	variableValues graphql.VariableValues

	// runner, when non-nil, runs each top-level field of a query or subscription as its own task so
	// independent root fields make progress concurrently. nil means the caller didn't supply one, in
	// which case root fields still execute without waiting on each other to settle, just not on
	// separate goroutines.
	runner concurrent.Executor

	// middleware wraps every field resolver invocation. May be nil, in which case resolvers are
	// called directly.
	middleware Middleware

	// dataLoaderManager tracks and dispatches DataLoader instances used while resolving fields of
	// this operation. May be nil if the caller didn't supply one, in which case ResolveInfo.LoadWith
	// style helpers relying on it are unavailable to resolvers.
	dataLoaderManager graphql.DataLoaderManager

	// logger receives diagnostic entries emitted while this operation runs (resolver panics,
	// data loader dispatch, etc). Defaults to a logrus.FieldLogger that discards everything if the
	// caller didn't supply one.
	logger logrus.FieldLogger

	// exceptionsAreReraised causes a recovered resolver panic to be re-panicked right after being
	// logged, instead of only being logged; the field's error is then not recorded.
	exceptionsAreReraised bool

	// errorsMutex guards errors, since field resolution for sibling fields of a query (as opposed to
	// a mutation) may run concurrently.
	errorsMutex sync.Mutex
	errors      graphql.Errors

	// resultMutex guards mutation of the result tree that isn't confined to a single node, namely
	// the non-null bubbling walk in nullifyNode, since sibling fields of a query may be resolving
	// concurrently and bubbling through a shared ancestor at the same time.
	resultMutex sync.Mutex
}

// newExecutionContext initializes an ExecutionContext given the operation to execute and the
// request data.
func newExecutionContext(ctx context.Context, operation *PreparedOperation, params *ExecuteParams) (*ExecutionContext, graphql.Errors) {
	// Run input coercion on variable values.
	variableValues, errs := value.CoerceVariableValues(
		operation.Schema(),
		operation.VariableDefinitions(),
		params.VariableValues)
	if errs.HaveOccurred() {
		return nil, errs
	}

	logger := params.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(ioDiscard{})
		logger = discard
	}

	return &ExecutionContext{
		ctx:                   ctx,
		operation:             operation,
		rootValue:             params.RootValue,
		appContext:            params.AppContext,
		variableValues:        variableValues,
		runner:                params.Runner,
		middleware:            params.Middleware,
		logger:                logger,
		dataLoaderManager:     params.DataLoaderManager,
		exceptionsAreReraised: params.ExceptionsAreReraised,
	}, graphql.NoErrors()
}

// ioDiscard is an io.Writer that discards everything written to it, used as the default logrus
// output so tests and callers that don't care about diagnostics aren't forced to configure one.
type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }

// Operation returns context.operation.
func (context *ExecutionContext) Operation() *PreparedOperation {
	return context.operation
}

// RootValue returns context.rootValue.
func (context *ExecutionContext) RootValue() interface{} {
	return context.rootValue
}

// AppContext returns context.appContext.
func (context *ExecutionContext) AppContext() interface{} {
	return context.appContext
}

// VariableValues returns context.variableValues.
func (context *ExecutionContext) VariableValues() graphql.VariableValues {
	return context.variableValues
}

// DataLoaderManager returns context.dataLoaderManager.
func (context *ExecutionContext) DataLoaderManager() graphql.DataLoaderManager {
	return context.dataLoaderManager
}

// Context returns the context.Context this operation is running under.
func (context *ExecutionContext) Context() context.Context {
	return context.ctx
}

// Logger returns the logger resolvers and internal machinery should log through.
func (context *ExecutionContext) Logger() logrus.FieldLogger {
	return context.logger
}

// Middleware returns the middleware chain wrapping field resolver invocation, or nil.
func (context *ExecutionContext) Middleware() Middleware {
	return context.middleware
}

// ExceptionsAreReraised returns context.exceptionsAreReraised.
func (context *ExecutionContext) ExceptionsAreReraised() bool {
	return context.exceptionsAreReraised
}

// forSubscriptionEvent returns an ExecutionContext sharing everything with context except
// rootValue and the accumulated error list, used to execute the subscription selection set fresh
// against each event emitted by a Source.
func (context *ExecutionContext) forSubscriptionEvent(rootValue interface{}) *ExecutionContext {
	return &ExecutionContext{
		ctx:                   context.ctx,
		operation:             context.operation,
		rootValue:             rootValue,
		appContext:            context.appContext,
		variableValues:        context.variableValues,
		runner:                context.runner,
		middleware:            context.middleware,
		dataLoaderManager:     context.dataLoaderManager,
		logger:                context.logger,
		exceptionsAreReraised: context.exceptionsAreReraised,
	}
}

// Runner returns the concurrent.Executor root fields are dispatched onto, or nil if the caller
// didn't supply one.
func (context *ExecutionContext) Runner() concurrent.Executor {
	return context.runner
}

// AppendError records an error that occurred while resolving a field. Safe to call from multiple
// goroutines concurrently resolving sibling fields of a query operation.
func (context *ExecutionContext) AppendError(err *graphql.Error) {
	context.errorsMutex.Lock()
	context.errors.Append(err)
	context.errorsMutex.Unlock()
}

// Errors returns every error accumulated so far while executing the operation.
func (context *ExecutionContext) Errors() graphql.Errors {
	context.errorsMutex.Lock()
	errs := context.errors
	context.errorsMutex.Unlock()
	return errs
}

// nullifyNode resolves result to nil and, if result is flagged non-null, bubbles the nil up through
// Parent links until reaching an ancestor that either allows a nil value or has already been
// nilled (e.g. by a sibling field's bubbling reaching the same ancestor first).
//
// Reference: https://graphql.github.io/graphql-spec/June2018/#sec-Errors-and-Non-Nullability
func (context *ExecutionContext) nullifyNode(result *ResultNode) {
	context.resultMutex.Lock()
	defer context.resultMutex.Unlock()

	for result != nil {
		if result.IsNil() {
			return
		}
		wasNonNull := result.IsNonNull()
		result.Kind = ResultKindNil
		result.Value = nil
		if !wasNonNull {
			return
		}
		result = result.Parent
	}
}
