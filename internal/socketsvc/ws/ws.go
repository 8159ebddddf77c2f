package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/avvvet/numbet-services/internal/auth"
	"github.com/avvvet/numbet-services/internal/comm"
	natsconn "github.com/avvvet/numbet-services/internal/nats"
	"github.com/go-chi/jwtauth"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Publisher sends a payload to every socket service instance.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// client serialises writes; gorilla connections allow one concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type Ws struct {
	connMap sync.Map // socketId -> *client
	viewers atomic.Int64

	Broker    Publisher
	tokenAuth *jwtauth.JWTAuth
}

func NewWs(tokenAuth *jwtauth.JWTAuth, initialViewers int64) *Ws {
	s := &Ws{tokenAuth: tokenAuth}
	s.viewers.Store(initialViewers)
	return s
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case comm.EventUpdateActiveUsers:
		s.handleUpdateActiveUsers(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handleUpdateActiveUsers(socketId string, msg *comm.WSMessage) {
	var payload comm.UpdateActiveUsers
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: malformed update-active-users payload from %s: %s", socketId, err)
		s.SendError(socketId, "Invalid payload")
		return
	}

	if err := auth.VerifyAdmin(s.tokenAuth, payload.Token); err != nil {
		log.Warnf("rejected viewer count update from socket %s: %s", socketId, err)
		s.SendError(socketId, "Unauthorized")
		return
	}
	if payload.Count < 0 {
		s.SendError(socketId, "Count must not be negative")
		return
	}

	out, err := comm.NewMessage(comm.EventActiveUsers, comm.ActiveUsers{Count: payload.Count})
	if err != nil {
		log.Errorf("Failed to build active users message: %v", err)
		return
	}
	bytes, err := json.Marshal(out)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	// every instance, this one included, applies the count when it comes back from NATS
	if err := s.Broker.Publish(natsconn.GameTopic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", natsconn.GameTopic, err)
		s.SendError(socketId, "Update failed")
		return
	}

	log.Infof("viewer count update to %d published by socket %s", payload.Count, socketId)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &client{conn: conn})
}

func (s *Ws) getClient(socketId string) (*client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*client), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
}

// Welcome sends the current viewer count to a newly connected socket.
func (s *Ws) Welcome(socketId string) {
	msg, err := comm.NewMessage(comm.EventActiveUsers, comm.ActiveUsers{Count: s.Viewers()})
	if err != nil {
		log.Errorf("Failed to build welcome message: %v", err)
		return
	}
	s.Send(socketId, msg)
}

func (s *Ws) Viewers() int64 {
	return s.viewers.Load()
}

func (s *Ws) SetViewers(count int64) {
	s.viewers.Store(count)
}

// Send writes m to one socket. Unknown sockets are ignored.
func (s *Ws) Send(socketId string, m *comm.WSMessage) error {
	c, ok := s.getClient(socketId)
	if !ok {
		return errors.New("socket not connected")
	}
	if err := c.write(m); err != nil {
		log.Errorf("write to socket %s: %v", socketId, err)
		return err
	}
	return nil
}

// Broadcast writes m to every connected socket.
func (s *Ws) Broadcast(m *comm.WSMessage) {
	sent := 0
	s.connMap.Range(func(key, value interface{}) bool {
		if err := value.(*client).write(m); err != nil {
			log.Warnf("broadcast %s to socket %s: %v", m.Type, key, err)
		} else {
			sent++
		}
		return true
	})
	log.Debugf("broadcast %s to %d sockets", m.Type, sent)
}

func (s *Ws) SendError(socketId, errorMsg string) {
	msg, err := comm.NewMessage(comm.EventError, map[string]string{"error": errorMsg})
	if err != nil {
		return
	}
	s.Send(socketId, msg)
}
