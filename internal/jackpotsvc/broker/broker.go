package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/comm"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/engine"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/service"
)

type Broker struct {
	Conn        *nats.Conn
	UserService *service.UserService
	Scheduler   *engine.Scheduler
}

func NewBroker(nc *nats.Conn, userService *service.UserService, scheduler *engine.Scheduler) *Broker {
	return &Broker{
		Conn:        nc,
		UserService: userService,
		Scheduler:   scheduler,
	}
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	//unmarshal nats message
	msg := &comm.WSMessage{}
	err := json.Unmarshal(msgNat.Data, &msg)
	if err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	switch msg.Type {
	case "init":
		var userInfo struct {
			TelegramID string `json:"telegram_id"`
			Username   string `json:"username"`
			FirstName  string `json:"first_name"`
			LastName   string `json:"last_name"`
		}
		err := json.Unmarshal(msg.Data, &userInfo)
		if err != nil {
			log.Errorf("Error %s", err)
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		user, _, err := b.UserService.GetOrCreateFromTelegram(ctx, userInfo.TelegramID,
			userInfo.Username, userInfo.FirstName, userInfo.LastName)
		if err != nil {
			log.Errorf("Error [UserService.GetOrCreateFromTelegram] %s", err)
			break
		}

		playerData := comm.PlayerData{
			Name:    user.FirstName,
			Balance: user.Balance.StringFixed(2),
			UserId:  user.UserID,
		}

		b.publishToSocket("init-response", playerData, msg.SocketId)
	case "get-balance":
		var request struct {
			UserID int64 `json:"user_id"`
		}
		err := json.Unmarshal(msg.Data, &request)
		if err != nil {
			log.Errorf("Error %s", err)
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		user, err := b.UserService.GetByID(ctx, request.UserID)
		if err != nil {
			log.Errorf("Error getBalance %s", err)
			break
		}

		playerData := comm.PlayerData{
			UserId:  user.UserID,
			Balance: user.Balance.StringFixed(2),
		}

		b.publishToSocket("balance-response", playerData, msg.SocketId)
	case "get-round":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		round, err := b.Scheduler.ActiveRound(ctx)
		if err != nil {
			log.Errorf("Error getRound %s", err)
			break
		}

		b.publishToSocket("round-response", comm.RoundData{Round: round}, msg.SocketId)
	}
}

// BetPlaced fans a fresh bet out to every connected client.
func (b *Broker) BetPlaced(round *models.Round, bet models.Bet) {
	b.publishToSocket("bet-placed", comm.BetData{
		RoundNumber: round.RoundNumber,
		Bet:         bet,
		TotalPot:    round.TotalPot.StringFixed(2),
	}, "")
}

// RoundCompleted announces the finished round, winner and proof included.
func (b *Broker) RoundCompleted(round *models.Round) {
	b.publishToSocket("round-completed", comm.RoundResult{Completed: round}, "")
}

// RoundOpened announces the round that takes over the betting.
func (b *Broker) RoundOpened(round *models.Round) {
	b.publishToSocket("round-opened", comm.RoundData{Round: round}, "")
}

// publishToSocket wraps a payload for the socket service. An empty socketId
// means broadcast.
func (b *Broker) publishToSocket(msgType string, payload interface{}, socketId string) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("unable to marshal %s payload: %s", msgType, err)
		return
	}

	msg := &comm.WSMessage{
		Type:     msgType,
		Data:     data,
		SocketId: socketId,
	}

	out, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	topic := "game.service"
	b.Publish(topic, out)
}

// consume message from socket service
func (b *Broker) SubscribSocketService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
