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
	"reflect"

	"github.com/corvidql/corvid/concurrent/deferred"
	"github.com/corvidql/corvid/graphql"
	values "github.com/corvidql/corvid/graphql/internal/value"
	"github.com/corvidql/corvid/iterator"
)

// completeValue implements "Value Completion" for a single field, writing the outcome into result.
// It returns a Deferred that settles once result and every node beneath it (reached through nested
// lists, objects and abstract types) have finished.
//
// Reference: https://facebook.github.io/graphql/June2018/#sec-Value-Completion
func completeValue(
	ctx *ExecutionContext,
	node *ExecutionNode,
	returnType graphql.Type,
	result *ResultNode,
	value interface{}) *deferred.Deferred {

	// A resolver may hand back an error value instead of returning one, per
	// https://github.com/graphql/graphql-js/commit/f62c0a25.
	if err, ok := value.(*graphql.Error); ok && err != nil {
		handleNodeError(ctx, node, result, err)
		return deferred.Resolved(nil)
	}

	// A resolver (or a middleware wrapping it) may hand back a Deferred of the value rather than the
	// value itself, when the value isn't available synchronously. Chain onto it instead of
	// recursing directly.
	if inner, ok := deferred.IsDeferred(value); ok {
		out, resolve, _ := deferred.New()
		inner.Then(
			func(v interface{}) {
				completeValue(ctx, node, returnType, result, v).Then(
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

	if wrappingType, isWrappingType := returnType.(graphql.WrappingType); isWrappingType {
		return completeWrappingValue(ctx, node, wrappingType, result, value)
	}
	return completeNonWrappingValue(ctx, node, returnType, result, value)
}

// completeWrappingValue completes value for a NonNull or List type, unwrapping NonNull first and
// handling a nil value per non-null propagation rules.
func completeWrappingValue(
	ctx *ExecutionContext,
	node *ExecutionNode,
	returnType graphql.WrappingType,
	result *ResultNode,
	value interface{}) *deferred.Deferred {

	var innerType graphql.Type = returnType

	nonNullType, isNonNullType := returnType.(graphql.NonNull)
	if isNonNullType {
		innerType = nonNullType.InnerType()
	}

	if values.IsNullish(value) {
		if isNonNullType {
			handleNodeError(ctx, node, result, graphql.NewError(fmt.Sprintf(
				"Cannot return null for non-nullable field %s.%s.",
				parentFieldType(ctx, node).Name(), node.Field.Name())))
		} else {
			result.Kind = ResultKindNil
			result.Value = nil
		}
		return deferred.Resolved(nil)
	}

	listType, isListType := innerType.(graphql.List)
	if !isListType {
		return completeNonWrappingValue(ctx, node, innerType, result, value)
	}

	return completeListValue(ctx, node, listType, result, value)
}

// completeListValue completes value (which must be an executor.Iterable or a Go array/slice) for a
// List type, completing each element with the list's element type and waiting for all of them to
// finish.
func completeListValue(
	ctx *ExecutionContext,
	node *ExecutionNode,
	listType graphql.List,
	result *ResultNode,
	value interface{}) *deferred.Deferred {

	elementType := listType.ElementType()
	_, elementIsNonNull := elementType.(graphql.NonNull)

	var elementValues []interface{}

	// If the value implements Iterable, enumerate it through its own iterator. Otherwise fall back
	// to reflection, treating value as a Go array or slice.
	if iterable, ok := value.(Iterable); ok {
		var elements []interface{}
		if sized, ok := iterable.(SizedIterable); ok {
			elements = make([]interface{}, 0, sized.Size())
		}

		iter := iterable.Iterator()
		for {
			v, err := iter.Next()
			if err == iterator.Done {
				break
			} else if err != nil {
				handleNodeError(ctx, node, result, graphql.NewError(fmt.Sprintf(
					"Error occurred while enumerating values in the list field %s.%s.",
					parentFieldType(ctx, node).Name(), node.Field.Name()), err))
				return deferred.Resolved(nil)
			}
			elements = append(elements, v)
		}
		elementValues = elements
	} else {
		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}

		if v.Kind() != reflect.Array && v.Kind() != reflect.Slice {
			handleNodeError(ctx, node, result, graphql.NewError(fmt.Sprintf(
				"Expected Iterable, but did not find one for field %s.%s.",
				parentFieldType(ctx, node).Name(), node.Field.Name())))
			return deferred.Resolved(nil)
		}

		n := v.Len()
		elementValues = make([]interface{}, n)
		for i := 0; i < n; i++ {
			elementValues[i] = v.Index(i).Interface()
		}
	}

	resultNodes := make([]ResultNode, len(elementValues))
	result.Kind = ResultKindList
	result.Value = resultNodes

	completions := make([]*deferred.Deferred, len(elementValues))
	for i, elementValue := range elementValues {
		elementResult := &resultNodes[i]
		elementResult.Parent = result
		elementResult.Key = i
		if elementIsNonNull {
			elementResult.SetIsNonNull()
		}
		completions[i] = completeValue(ctx, node, elementType, elementResult, elementValue)
	}

	return deferred.All(completions...)
}

// completeNonWrappingValue completes value for a Scalar, Enum, Object, Interface or Union type.
// Non-null handling has already happened in completeWrappingValue by the time this is reached, so a
// nil value here always resolves to a (permitted) JSON null.
func completeNonWrappingValue(
	ctx *ExecutionContext,
	node *ExecutionNode,
	returnType graphql.Type,
	result *ResultNode,
	value interface{}) *deferred.Deferred {

	if values.IsNullish(value) {
		result.Kind = ResultKindNil
		result.Value = nil
		return deferred.Resolved(nil)
	}

	switch returnType := returnType.(type) {
	case graphql.LeafType:
		completeLeafValue(ctx, node, returnType, result, value)
		return deferred.Resolved(nil)

	case graphql.Object:
		return completeObjectValue(ctx, node, returnType, result, value)

	case graphql.AbstractType:
		return completeAbstractValue(ctx, node, returnType, result, value)
	}

	handleNodeError(ctx, node, result, graphql.NewError(
		fmt.Sprintf(`Cannot complete value of unexpected type "%v".`, returnType)))
	return deferred.Resolved(nil)
}

// completeLeafValue coerces value for a Scalar or Enum type's result coercion rules.
func completeLeafValue(
	ctx *ExecutionContext,
	node *ExecutionNode,
	returnType graphql.LeafType,
	result *ResultNode,
	value interface{}) {

	coercedValue, err := returnType.CoerceResultValue(value)
	if err != nil {
		if e, ok := err.(*graphql.Error); !ok || e.Kind != graphql.ErrKindCoercion {
			err = graphql.NewDefaultResultCoercionError(returnType.Name(), value, err)
		}
		handleNodeError(ctx, node, result, err)
		return
	}

	result.Kind = ResultKindLeaf
	result.Value = coercedValue
}

// completeObjectValue collects and dispatches execution of returnType's selection set against
// value, writing the per-field results as result's object value.
func completeObjectValue(
	ctx *ExecutionContext,
	node *ExecutionNode,
	returnType graphql.Object,
	result *ResultNode,
	value interface{}) *deferred.Deferred {

	childNodes, err := collectFields(ctx, node, returnType)
	if err != nil {
		handleNodeError(ctx, node, result, err)
		return deferred.Resolved(nil)
	}

	return dispatchObjectFields(ctx, result, childNodes, value)
}

// completeAbstractValue resolves value's runtime Object type, validates it against the abstract
// type's possible types, then completes it as an object value.
//
// Resolution prefers returnType's TypeResolver when one is configured. Otherwise (or if the
// TypeResolver declines by returning a nil Object without an error) it falls back to scanning
// the abstract type's possible Object types and asking each one's IsTypeOf whether it claims
// value, picking the first match. Whichever way the runtime type was determined, if that Object
// itself has an IsTypeOf and it rejects value, the field fails the same way a TypeResolver
// producing a bad type would.
func completeAbstractValue(
	ctx *ExecutionContext,
	node *ExecutionNode,
	returnType graphql.AbstractType,
	result *ResultNode,
	value interface{}) *deferred.Deferred {

	info := newResolveInfo(ctx, node, result)

	var runtimeType graphql.Object
	if resolver := returnType.TypeResolver(); resolver != nil {
		resolved, err := resolver.Resolve(ctx.Context(), value, info)
		if err != nil {
			handleNodeError(ctx, node, result, err)
			return deferred.Resolved(nil)
		}
		runtimeType = resolved
	}

	if runtimeType == nil {
		runtimeType = resolveTypeByIsTypeOf(ctx, returnType, value, info)
	}

	if runtimeType == nil {
		handleNodeError(ctx, node, result, graphql.NewError(fmt.Sprintf(
			"Abstract type %s must resolve to an Object type at runtime for field %s.%s with value "+
				"%s, received nil.",
			returnType, parentFieldType(ctx, node).Name(), node.Field.Name(), graphql.Inspect(value))))
		return deferred.Resolved(nil)
	}

	possibleTypes := ctx.Operation().Schema().PossibleTypes(returnType)
	if !possibleTypes.Contains(runtimeType) {
		handleNodeError(ctx, node, result, graphql.NewError(fmt.Sprintf(
			`Runtime Object type "%s" is not a possible type for "%s".`, runtimeType, returnType)))
		return deferred.Resolved(nil)
	}

	if isTypeOf := runtimeType.IsTypeOf(); isTypeOf != nil && !isTypeOf(ctx.Context(), value, info) {
		handleNodeError(ctx, node, result, graphql.NewError(fmt.Sprintf(
			`Expected value of type "%s" but got: %s.`, runtimeType.Name(), graphql.Inspect(value))))
		return deferred.Resolved(nil)
	}

	return completeObjectValue(ctx, node, runtimeType, result, value)
}

// resolveTypeByIsTypeOf scans abstractType's possible Object types for one whose IsTypeOf claims
// value, returning the first match or nil if none (or none with an IsTypeOf) matches.
func resolveTypeByIsTypeOf(
	ctx *ExecutionContext,
	abstractType graphql.AbstractType,
	value interface{},
	info graphql.ResolveInfo) graphql.Object {

	possibleTypes := ctx.Operation().Schema().PossibleTypes(abstractType)
	for _, candidate := range possibleTypes.Types() {
		if isTypeOf := candidate.IsTypeOf(); isTypeOf != nil && isTypeOf(ctx.Context(), value, info) {
			return candidate
		}
	}
	return nil
}

// dispatchObjectFields allocates a ResultNode for each of childNodes and resolves them, then
// returns a Deferred settling once every field (and its subtree) has finished. Fields run inline,
// one after another, but without waiting for one to settle before starting the next — true
// cross-goroutine concurrency across sibling fields is only applied at the root (see
// dispatchRootField), since that's the level data loader batching and the serial-vs-parallel root
// dispatch rules care about; nested selection sets are small enough in practice that inline
// dispatch is sufficient.
func dispatchObjectFields(
	ctx *ExecutionContext,
	result *ResultNode,
	childNodes []*ExecutionNode,
	source interface{}) *deferred.Deferred {

	numChildNodes := len(childNodes)
	nodeResults := make([]ResultNode, numChildNodes)

	result.Kind = ResultKindObject
	result.Value = &ObjectResultValue{
		ExecutionNodes: childNodes,
		FieldValues:    nodeResults,
	}

	completions := make([]*deferred.Deferred, numChildNodes)
	for i, childNode := range childNodes {
		nodeResult := &nodeResults[i]
		nodeResult.Parent = result
		nodeResult.Key = childNode.ResponseKey()

		if graphql.IsNonNullType(childNode.Field.Type()) {
			nodeResult.SetIsNonNull()
		}

		completions[i] = executeNode(ctx, childNode, nodeResult, source)
	}

	// Every sibling field's resolver has now had a chance to register a DataLoader load (each of
	// which returns a pending Deferred without blocking). Dispatch them as a single batch so
	// resolvers that each load one row by ID collapse into one query instead of N.
	drainDataLoaders(ctx)

	return deferred.All(completions...)
}

// drainDataLoaders dispatches every DataLoader that has accumulated pending keys since the last
// drain. Dispatching one round can itself cause new loaders to register (a batch function that
// loads a row and then schedules a load for a related row), so this keeps draining until nothing is
// left pending.
func drainDataLoaders(ctx *ExecutionContext) {
	manager := ctx.DataLoaderManager()
	if manager == nil || !manager.HasPendingDataLoaders() {
		return
	}

	for {
		pending := manager.GetAndResetPendingDataLoaders()
		if len(pending) == 0 {
			return
		}
		for loader := range pending {
			loader.Dispatch(ctx.Context())
		}
	}
}
