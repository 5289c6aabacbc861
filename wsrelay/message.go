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

// Package wsrelay relays GraphQL operations, including long-lived subscriptions, over a
// graphql-ws-protocol WebSocket connection, driving the Subscription Adapter's event stream
// (graphql/executor.Source / ExecuteParams.AllowSubscriptions) on behalf of each client.
package wsrelay

import "encoding/json"

// MessageType identifies the kind of a protocol Message.
type MessageType string

// The graphql-ws subprotocol message types this relay understands.
const (
	MessageTypeConnectionInit      MessageType = "connection_init"
	MessageTypeConnectionAck       MessageType = "connection_ack"
	MessageTypeConnectionError     MessageType = "connection_error"
	MessageTypeConnectionKeepAlive MessageType = "ka"
	MessageTypeConnectionTerminate MessageType = "connection_terminate"
	MessageTypeStart               MessageType = "start"
	MessageTypeStop                MessageType = "stop"
	MessageTypeData                MessageType = "data"
	MessageTypeError               MessageType = "error"
	MessageTypeComplete            MessageType = "complete"
)

// Message is a single graphql-ws protocol frame, used for both client and server messages.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StartPayload is the payload of a "start" message: the operation the client wants run.
type StartPayload struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}
