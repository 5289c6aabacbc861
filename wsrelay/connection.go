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
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/corvidql/corvid/graphql/executor"
)

// ConnectionHandler reacts to protocol events delivered by a Connection. Methods may be invoked
// from a goroutine owned by the Connection, but never concurrently with each other.
type ConnectionHandler interface {
	// HandleInit is called when the client sends the init message. A non-nil error is relayed to
	// the client as a connection_error and the connection is then closed.
	HandleInit(parameters json.RawMessage) error

	// HandleStart is called when the client wants to run an operation under id. For a query or
	// mutation the handler sends exactly one data message followed by complete. For a
	// subscription, the handler sends a data message per event and a complete message once the
	// event stream ends.
	HandleStart(id string, query string, variables map[string]interface{}, operationName string)

	// HandleStop is called when the client wants to cancel the operation running under id.
	HandleStop(id string)

	// HandleClose is called once, after both the read and write loops have exited.
	HandleClose()
}

const connectionSendBufferSize = 100

// Connection is a server-side graphql-ws connection: it speaks the init/start/stop/data/complete
// protocol over a gorilla/websocket connection and drives a ConnectionHandler, typically one
// backed by graphql/executor, in response.
type Connection struct {
	Logger  logrus.FieldLogger
	Handler ConnectionHandler

	conn              *websocket.Conn
	readLoopDone      chan struct{}
	writeLoopDone     chan struct{}
	outgoing          chan *websocket.PreparedMessage
	close             chan struct{}
	beginClosingOnce  sync.Once
	finishClosingOnce sync.Once
	didInit           bool
}

// Serve takes ownership of conn and begins its read and write loops.
func (c *Connection) Serve(conn *websocket.Conn) {
	c.conn = conn
	c.readLoopDone = make(chan struct{})
	c.writeLoopDone = make(chan struct{})
	c.outgoing = make(chan *websocket.PreparedMessage, connectionSendBufferSize)
	c.close = make(chan struct{})
	go c.readLoop()
	go c.writeLoop()
}

// SendData sends a single execution result to the client under id.
func (c *Connection) SendData(id string, result *executor.ExecutionResult) error {
	buf, err := result.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "unable to marshal execution result")
	}
	return c.sendMessage(&Message{
		ID:      id,
		Type:    MessageTypeData,
		Payload: json.RawMessage(buf),
	})
}

// SendComplete tells the client that no further data messages will arrive under id.
func (c *Connection) SendComplete(id string) error {
	return c.sendMessage(&Message{
		ID:   id,
		Type: MessageTypeComplete,
	})
}

// Close closes the connection. Must not be called from a ConnectionHandler method.
func (c *Connection) Close() error {
	c.beginClosing()
	c.finishClosing()
	return nil
}

func (c *Connection) sendMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "error marshaling message")
	}
	prepared, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		return errors.Wrap(err, "error preparing message")
	}
	select {
	case c.outgoing <- prepared:
	default:
		return fmt.Errorf("send buffer full")
	}
	return nil
}

func (c *Connection) readLoop() {
	defer close(c.readLoopDone)
	defer c.beginClosing()

	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseAbnormalClosure, websocket.CloseGoingAway) {
				select {
				case <-c.close:
				default:
					c.Logger.Error(errors.Wrap(err, "websocket read error"))
				}
			}
			return
		}

		c.handleMessage(p)
	}
}

func (c *Connection) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Logger.WithField("error", err.Error()).Info("malformed graphql-ws message received")
		return
	}

	switch msg.Type {
	case MessageTypeConnectionInit:
		if err := c.Handler.HandleInit(msg.Payload); err != nil {
			payload := struct {
				Message string `json:"message"`
			}{
				Message: err.Error(),
			}
			if buf, err := json.Marshal(payload); err != nil {
				c.Logger.Error(errors.Wrap(err, "unable to marshal connection error payload"))
			} else if err := c.sendMessage(&Message{
				ID:      msg.ID,
				Type:    MessageTypeConnectionError,
				Payload: buf,
			}); err != nil {
				c.Logger.Error(errors.Wrap(err, "unable to send connection error"))
			}
			c.beginClosing()
			return
		}

		c.didInit = true
		if err := c.sendMessage(&Message{
			ID:   msg.ID,
			Type: MessageTypeConnectionAck,
		}); err != nil {
			c.Logger.Error(errors.Wrap(err, "unable to send connection ack"))
			c.beginClosing()
		} else if err := c.sendMessage(&Message{
			Type: MessageTypeConnectionKeepAlive,
		}); err != nil {
			c.Logger.Error(errors.Wrap(err, "unable to send initial keep-alive"))
			c.beginClosing()
		}

	case MessageTypeStart:
		if !c.didInit {
			return
		}

		var payload StartPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.Logger.WithField("error", err.Error()).Info("malformed graphql-ws message received")
			return
		}
		c.Handler.HandleStart(msg.ID, payload.Query, payload.Variables, payload.OperationName)

	case MessageTypeStop:
		if !c.didInit {
			return
		}

		c.Handler.HandleStop(msg.ID)
		if err := c.sendMessage(&Message{
			ID:   msg.ID,
			Type: MessageTypeComplete,
		}); err != nil {
			c.Logger.Error(errors.Wrap(err, "unable to send stop response"))
		}

	case MessageTypeConnectionTerminate:
		c.beginClosing()

	default:
		c.Logger.Info("unknown graphql-ws message type received")
	}
}

var keepAlivePreparedMessage *websocket.PreparedMessage

func init() {
	data, err := json.Marshal(&Message{
		Type: MessageTypeConnectionKeepAlive,
	})
	if err != nil {
		panic(errors.Wrap(err, "error marshaling message"))
	}
	prepared, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		panic(errors.Wrap(err, "error preparing message"))
	}
	keepAlivePreparedMessage = prepared
}

func (c *Connection) writeLoop() {
	defer c.finishClosing()
	defer close(c.writeLoopDone)

	defer c.conn.Close()

	keepAliveTicker := time.NewTicker(15 * time.Second)
	defer keepAliveTicker.Stop()

	for {
		var msg *websocket.PreparedMessage
		select {
		case outgoing, ok := <-c.outgoing:
			if !ok {
				return
			}
			msg = outgoing
		case <-keepAliveTicker.C:
			msg = keepAlivePreparedMessage
		case <-c.close:
			return
		}

		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

		if err := c.conn.WritePreparedMessage(msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseAbnormalClosure, websocket.CloseGoingAway) && err != websocket.ErrCloseSent {
				c.Logger.Error(errors.Wrap(err, "websocket write error"))
			}
			return
		}
	}
}

func (c *Connection) beginClosing() {
	c.beginClosingOnce.Do(func() {
		close(c.close)
	})
}

func (c *Connection) finishClosing() {
	<-c.readLoopDone
	<-c.writeLoopDone
	invokeHandler := false
	c.finishClosingOnce.Do(func() {
		invokeHandler = true
	})
	if invokeHandler {
		c.Handler.HandleClose()
	}
}
