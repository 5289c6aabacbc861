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

// Command corvidql runs a single GraphQL operation against a small demo schema and prints the
// resulting response as JSON. It exists to exercise graphql/executor end to end from the command
// line, the way a developer would poke at a server without standing one up.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/corvidql/corvid/graphql"
	"github.com/corvidql/corvid/graphql/executor"
	"github.com/corvidql/corvid/graphql/parser"
	"github.com/corvidql/corvid/graphql/token"
)

// demoSchema builds a tiny, self-contained schema so the CLI has something to query without a
// caller first having to write one. Real embedders of graphql/executor provide their own schema;
// this one exists only to give `corvidql` a GraphQL service to talk to.
func demoSchema() graphql.Schema {
	query := graphql.MustNewObject(&graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"echo": {
				Type: graphql.T(graphql.String()),
				Args: graphql.ArgumentConfigMap{
					"message": {
						Type: graphql.T(graphql.NonNullOf(graphql.String())),
					},
				},
				Resolver: graphql.FieldResolverFunc(func(ctx context.Context, source interface{}, info graphql.ResolveInfo) (interface{}, error) {
					message, _ := info.Args().Get("message").(string)
					return message, nil
				}),
			},
			"version": {
				Type: graphql.T(graphql.String()),
				Resolver: graphql.FieldResolverFunc(func(ctx context.Context, source interface{}, info graphql.ResolveInfo) (interface{}, error) {
					return "corvidql/0", nil
				}),
			},
		},
	})

	return graphql.MustNewSchema(&graphql.SchemaConfig{
		Query: query,
	})
}

// options holds the flags parsed by Run, grounded on ccbrown-api-fu's cmd/gql-client-gen flag set.
type options struct {
	query         string
	operationName string
	variables     string
	logLevel      string
}

func parseFlags(args []string) (*options, error) {
	flags := pflag.NewFlagSet("corvidql", pflag.ContinueOnError)

	opts := &options{}
	flags.StringVar(&opts.query, "query", "", "the GraphQL document to execute (required)")
	flags.StringVar(&opts.operationName, "operation-name", "", "the operation to run, if the document defines more than one")
	flags.StringVar(&opts.variables, "variables", "{}", "JSON object of variable values for the operation")
	flags.StringVar(&opts.logLevel, "log-level", "info", "logrus level: debug, info, warn, error")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if opts.query == "" {
		return nil, fmt.Errorf("the --query flag is required")
	}
	return opts, nil
}

// Run parses args, executes the resulting operation against demoSchema, and writes the JSON
// response to w. It returns a non-nil error for anything that keeps the operation from running;
// errors produced by the operation itself (a resolver failure, say) are part of the JSON written
// to w, not part of this return value.
func Run(w io.Writer, args ...string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	logLevel, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", opts.logLevel, err)
	}
	logger := logrus.New()
	logger.SetLevel(logLevel)

	var variables map[string]interface{}
	if err := json.Unmarshal([]byte(opts.variables), &variables); err != nil {
		return fmt.Errorf("invalid --variables JSON: %w", err)
	}

	document, err := parser.Parse(token.NewSourceFromString(opts.query), parser.ParseOptions{})
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	operation, errs := executor.Prepare(executor.PrepareParams{
		Schema:        demoSchema(),
		Document:      document,
		OperationName: opts.operationName,
	})
	if errs.HaveOccurred() {
		return fmt.Errorf("prepare error: %s", errs.Errors[0].Error())
	}

	result := <-operation.Execute(context.Background(), executor.ExecuteParams{
		VariableValues: variables,
		Logger:         logger,
	})

	return result.MarshalJSONTo(w)
}

func main() {
	if err := Run(os.Stdout, os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
