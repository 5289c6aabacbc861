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
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/corvidql/corvid/graphql"
)

// WebSocketSubprotocol is the subprotocol this relay negotiates with clients.
const WebSocketSubprotocol = "graphql-ws"

// Server upgrades incoming HTTP requests to graphql-ws WebSocket connections and runs every
// operation they start against Schema.
type Server struct {
	Schema graphql.Schema
	Logger logrus.FieldLogger

	// CheckOrigin is passed through to the underlying websocket.Upgrader. A nil value falls back
	// to the upgrader's same-origin default.
	CheckOrigin func(r *http.Request) bool

	mu          sync.Mutex
	connections map[*Connection]struct{}
}

// ServeHTTP implements http.Handler, upgrading the request to a WebSocket and serving a relay
// connection over it until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "not a websocket upgrade", http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin:  s.CheckOrigin,
		Subprotocols: []string{WebSocketSubprotocol},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	connection := &Connection{Logger: logger}
	connection.Handler = &untrackingHandler{
		ConnectionHandler: NewExecutorHandler(connection, s.Schema, logger),
		server:            s,
		connection:        connection,
	}

	s.trackConnection(connection)
	connection.Serve(conn)
}

// untrackingHandler removes its connection from the owning Server's tracked set once the
// connection finishes closing, so Server.Close never sees a stale entry.
type untrackingHandler struct {
	ConnectionHandler
	server     *Server
	connection *Connection
}

func (h *untrackingHandler) HandleClose() {
	h.ConnectionHandler.HandleClose()
	h.server.untrackConnection(h.connection)
}

func (s *Server) trackConnection(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connections == nil {
		s.connections = map[*Connection]struct{}{}
	}
	s.connections[c] = struct{}{}
}

func (s *Server) untrackConnection(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, c)
}

// Close closes every connection currently being served.
func (s *Server) Close() error {
	s.mu.Lock()
	connections := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		connections = append(connections, c)
	}
	s.mu.Unlock()

	for _, c := range connections {
		c.Close()
	}
	return nil
}
