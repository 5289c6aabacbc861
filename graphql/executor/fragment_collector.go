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
	"github.com/corvidql/corvid/graphql"
	"github.com/corvidql/corvid/graphql/ast"
	values "github.com/corvidql/corvid/graphql/internal/value"
)

// collectFields implements CollectFields() [0] memoized per runtime type. A selection set can be
// visited multiple times with different runtime types (e.g. each element of a list of an
// interface type may resolve to a different concrete Object), so the resulting []*ExecutionNode
// for a (node, runtimeType) pair is cached on node.Children the first time it is built.
//
// [0]: https://graphql.github.io/graphql-spec/June2018/#CollectFields()
func collectFields(
	ctx *ExecutionContext,
	node *ExecutionNode,
	runtimeType graphql.Object) ([]*ExecutionNode, error) {

	var childNodes []*ExecutionNode

	if node.Children == nil {
		node.Children = map[graphql.Object][]*ExecutionNode{}
	} else {
		childNodes = node.Children[runtimeType]
	}

	if childNodes == nil {
		var err error
		childNodes, err = buildChildExecutionNodesForSelectionSet(ctx, node, runtimeType)
		if err != nil {
			return nil, err
		}
	}

	node.Children[runtimeType] = childNodes

	return childNodes, nil
}

// buildChildExecutionNodesForSelectionSet flattens the selection set(s) of parentNode — following
// inline fragments and named fragment spreads whose type condition is satisfied by runtimeType —
// into a flat, ordered list of ExecutionNodes, one per distinct response key. Fields requested more
// than once under the same response key have their ast.Field definitions coalesced onto a single
// node, per spec: their sub-selections are merged at completion time rather than executed twice.
func buildChildExecutionNodesForSelectionSet(
	ctx *ExecutionContext,
	parentNode *ExecutionNode,
	runtimeType graphql.Object) ([]*ExecutionNode, error) {

	// Prevents a named fragment from being expanded twice within the same selection set.
	visitedFragmentNames := map[string]bool{}

	// Maps a field's response key to its node, so repeated requests for the same key coalesce.
	fields := map[string]*ExecutionNode{}

	childNodes := []*ExecutionNode{}

	type taskData struct {
		selectionSet   ast.SelectionSet
		selectionIndex int
	}

	var stack []taskData

	if parentNode.IsRoot() {
		stack = []taskData{
			{ctx.Operation().Definition().SelectionSet, 0},
		}
	} else {
		definitions := parentNode.Definitions
		numDefinitions := len(definitions)
		stack = make([]taskData, numDefinitions)
		// Stack is LIFO; place the selection sets in reverse order so they're visited in document order.
		for i, definition := range definitions {
			stack[numDefinitions-i-1].selectionSet = definition.SelectionSet
		}
	}

	for len(stack) > 0 {
		var (
			data = &stack[len(stack)-1]

			selectionSet  = data.selectionSet
			numSelections = len(selectionSet)
			interrupted   = false
		)

		for data.selectionIndex < numSelections && !interrupted {
			selection := selectionSet[data.selectionIndex]
			data.selectionIndex++
			if data.selectionIndex >= numSelections {
				stack = stack[:len(stack)-1]
			}

			shouldInclude, err := shouldIncludeNode(ctx, selection)
			if err != nil {
				return nil, err
			} else if !shouldInclude {
				continue
			}

			switch selection := selection.(type) {
			case *ast.Field:
				name := selection.ResponseKey()
				field := fields[name]
				if field != nil {
					field.Definitions = append(field.Definitions, selection)
				} else {
					fieldDef := findFieldDef(ctx.Operation().Schema(), runtimeType, selection.Name.Value())
					if fieldDef == nil {
						// Schema doesn't define the field under this runtime type; skip silently per spec.
						//
						// Reference: 3.c. in https://graphql.github.io/graphql-spec/June2018/#ExecuteSelectionSet().
						break
					}

					args, err := values.ArgumentValues(fieldDef, selection, ctx.VariableValues())
					if err != nil {
						return nil, err
					}

					field = &ExecutionNode{
						Parent:      parentNode,
						Definitions: []*ast.Field{selection},
						ParentType:  runtimeType,
						Field:       fieldDef,
						Args:        args,
					}

					childNodes = append(childNodes, field)
					fields[name] = field
				}

			case *ast.InlineFragment:
				if selection.HasTypeCondition() {
					if !doesTypeConditionSatisfy(ctx, selection.TypeCondition, runtimeType) {
						break
					}
				}

				stack = append(stack, taskData{selectionSet: selection.SelectionSet})
				// Fields must be collected in document (DFS) order.
				interrupted = true

			case *ast.FragmentSpread:
				fragmentName := selection.Name.Value()
				if visited := visitedFragmentNames[fragmentName]; visited {
					break
				}
				visitedFragmentNames[fragmentName] = true

				fragmentDef := ctx.Operation().FragmentDef(fragmentName)
				if fragmentDef == nil {
					break
				}

				if !doesTypeConditionSatisfy(ctx, fragmentDef.TypeCondition, runtimeType) {
					break
				}

				stack = append(stack, taskData{selectionSet: fragmentDef.SelectionSet})
				interrupted = true
			}
		}
	}

	return childNodes, nil
}

// shouldIncludeNode determines if a field or fragment should be included, per the @skip and
// @include directives, where @skip takes precedence over @include when both are present.
//
// Reference: https://graphql.github.io/graphql-spec/June2018/#sec--include
func shouldIncludeNode(ctx *ExecutionContext, node ast.Selection) (bool, error) {
	skip, err := values.DirectiveValues(graphql.SkipDirective(), node.GetDirectives(), ctx.VariableValues())
	if err != nil {
		return false, err
	}
	if shouldSkip := skip.Get("if"); shouldSkip != nil && shouldSkip.(bool) {
		return false, nil
	}

	include, err := values.DirectiveValues(graphql.IncludeDirective(), node.GetDirectives(), ctx.VariableValues())
	if err != nil {
		return false, err
	}
	if shouldInclude := include.Get("if"); shouldInclude != nil && !shouldInclude.(bool) {
		return false, nil
	}

	return true, nil
}

// findFieldDef looks up a field on parentType, special-casing the __schema, __type and __typename
// introspection fields. __typename is queryable on any Object, Interface or Union; __schema and
// __type are only exposed on the root Query type.
func findFieldDef(schema graphql.Schema, parentType graphql.Object, fieldName string) graphql.Field {
	if schema.Query() == parentType {
		if fieldName == schemaMetaFieldName {
			return schemaMetaField{}
		} else if fieldName == typeMetaFieldName {
			return typeMetaField{}
		}
	}
	if fieldName == typenameMetaFieldName {
		return typenameMetaField{}
	}
	return parentType.Fields()[fieldName]
}

// doesTypeConditionSatisfy determines whether a fragment's type condition applies to the given
// runtime (concrete Object) type, following the abstract-type possible-types relation when the
// condition names an Interface or Union.
func doesTypeConditionSatisfy(ctx *ExecutionContext, typeCondition ast.NamedType, t graphql.Object) bool {
	schema := ctx.Operation().Schema()

	conditionalType := schema.TypeFromAST(typeCondition)
	if conditionalType == t {
		return true
	}

	if abstractType, ok := conditionalType.(graphql.AbstractType); ok {
		return schema.PossibleTypes(abstractType).Contains(t)
	}

	return false
}
