package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/comm"
	"github.com/starsjackpot/jackpot-services/internal/socketsvc/broker"
)

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "init":
		s.handleInit(socketId, message)
	case "get-balance", "get-round":
		s.forward(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handleInit(socketId string, msg *comm.WSMessage) {
	var payload struct {
		TelegramID string `json:"telegram_id"`
		Username   string `json:"username"`
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
	}

	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: invalid_init_data Malformed init payload %s", err)
		return
	}

	if payload.TelegramID == "" {
		log.Error("Invalid init payload: missing telegram id")
		return
	}

	s.forward(socketId, msg)
	log.Infof("Published init message for telegram id %s", payload.TelegramID)
}

// forward stamps the message with the socket id and hands it to the
// jackpot service.
func (s *Ws) forward(socketId string, msg *comm.WSMessage) {
	msg.SocketId = socketId

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	topic := "socket.service"
	if err := s.Broker.Publish(topic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", topic, err)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

// EachConnection visits every live connection; used for broadcasts.
func (s *Ws) EachConnection(fn func(socketId string, conn *websocket.Conn) bool) {
	s.connMap.Range(func(key, value interface{}) bool {
		return fn(key.(string), value.(*websocket.Conn))
	})
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	log.Infof("socket %s removed", socketId)
}
