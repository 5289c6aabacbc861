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

package wsrelay

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/corvidql/corvid/graphql"
	"github.com/corvidql/corvid/graphql/executor"
	"github.com/corvidql/corvid/graphql/parser"
	"github.com/corvidql/corvid/graphql/token"
)

// resultSink is the subset of *Connection that ExecutorHandler needs to deliver results. It
// exists so tests can drive ExecutorHandler without a real WebSocket connection.
type resultSink interface {
	SendData(id string, result *executor.ExecutionResult) error
	SendComplete(id string) error
}

// ExecutorHandler is a ConnectionHandler that runs every operation it's asked to start against a
// fixed schema via graphql/executor, streaming results back over the owning Connection.
//
// Its zero value is not usable; construct one with NewExecutorHandler.
type ExecutorHandler struct {
	Connection resultSink
	Schema     graphql.Schema
	Logger     logrus.FieldLogger

	// RootValue is passed through to every operation's ExecuteParams.RootValue.
	RootValue interface{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewExecutorHandler returns a handler that executes operations against schema and streams
// results over conn. conn.Handler must be set to the returned handler (or left for the caller to
// set) before conn.Serve is called.
func NewExecutorHandler(conn resultSink, schema graphql.Schema, logger logrus.FieldLogger) *ExecutorHandler {
	return &ExecutorHandler{
		Connection: conn,
		Schema:     schema,
		Logger:     logger,
		cancels:    map[string]context.CancelFunc{},
	}
}

// HandleInit implements ConnectionHandler. This relay doesn't require any particular init
// payload; any client that speaks the protocol is accepted.
func (h *ExecutorHandler) HandleInit(parameters json.RawMessage) error {
	return nil
}

// HandleStart implements ConnectionHandler: it parses and prepares query, then drives it to
// completion (for a query or mutation) or streams it indefinitely (for a subscription) until the
// client stops it, the event source closes, or the connection closes.
func (h *ExecutorHandler) HandleStart(id string, query string, variables map[string]interface{}, operationName string) {
	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancels[id] = cancel
	h.mu.Unlock()

	go h.run(ctx, id, query, variables, operationName)
}

func (h *ExecutorHandler) run(ctx context.Context, id string, query string, variables map[string]interface{}, operationName string) {
	defer h.forgetOperation(id)

	document, err := parser.Parse(token.NewSourceFromString(query), parser.ParseOptions{})
	if err != nil {
		h.sendParseError(id, err)
		return
	}

	operation, errs := executor.Prepare(executor.PrepareParams{
		Schema:        h.Schema,
		Document:      document,
		OperationName: operationName,
	})
	if errs.HaveOccurred() {
		if sendErr := h.Connection.SendData(id, &executor.ExecutionResult{Errors: errs}); sendErr != nil {
			h.Logger.Error(sendErr)
		}
		h.complete(id)
		return
	}

	results := operation.Execute(ctx, executor.ExecuteParams{
		RootValue:          h.RootValue,
		VariableValues:     variables,
		Logger:             h.Logger,
		AllowSubscriptions: true,
	})

	for result := range results {
		result := result
		if sendErr := h.Connection.SendData(id, &result); sendErr != nil {
			h.Logger.Error(sendErr)
			return
		}
	}

	h.complete(id)
}

func (h *ExecutorHandler) sendParseError(id string, err error) {
	if sendErr := h.Connection.SendData(id, &executor.ExecutionResult{
		Errors: graphql.ErrorsOf(graphql.NewError(err.Error())),
	}); sendErr != nil {
		h.Logger.Error(sendErr)
		return
	}
	h.complete(id)
}

func (h *ExecutorHandler) complete(id string) {
	if err := h.Connection.SendComplete(id); err != nil {
		h.Logger.Error(err)
	}
}

// HandleStop implements ConnectionHandler: it cancels the context backing the operation running
// under id, if any. Canceling unblocks a subscription's event source and lets run's range over
// results finish and send the closing complete message on its own.
func (h *ExecutorHandler) HandleStop(id string) {
	h.mu.Lock()
	cancel, ok := h.cancels[id]
	delete(h.cancels, id)
	h.mu.Unlock()

	if ok {
		cancel()
	}
}

// HandleClose implements ConnectionHandler: it cancels every operation still running so none of
// them leak past the connection's lifetime.
func (h *ExecutorHandler) HandleClose() {
	h.mu.Lock()
	cancels := h.cancels
	h.cancels = map[string]context.CancelFunc{}
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (h *ExecutorHandler) forgetOperation(id string) {
	h.mu.Lock()
	delete(h.cancels, id)
	h.mu.Unlock()
}
