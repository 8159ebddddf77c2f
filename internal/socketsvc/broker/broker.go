package broker

import (
	"encoding/json"

	"github.com/avvvet/numbet-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn       *nats.Conn
	Broadcast  func(*comm.WSMessage)
	SetViewers func(int64)
}

func NewBroker(conn *nats.Conn, fncBroadcast func(*comm.WSMessage), fncSetViewers func(int64)) *Broker {
	return &Broker{
		Conn:       conn,
		Broadcast:  fncBroadcast,
		SetViewers: fncSetViewers,
	}
}

// consume events from the game service and other socket instances
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
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

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	b.Dispatch(msgNats.Data)
}

// Dispatch fans one game event out to the web clients.
func (b *Broker) Dispatch(data []byte) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(data, message); err != nil {
		log.Errorf("Error decoding nats message: %s", err)
		return
	}

	switch message.Type {
	case comm.EventQRData, comm.EventQROnly, comm.EventNumWon:
		b.Broadcast(message)
	case comm.EventActiveUsers:
		var au comm.ActiveUsers
		if err := json.Unmarshal(message.Data, &au); err != nil {
			log.Errorf("Error decoding active users count: %s", err)
			return
		}
		b.SetViewers(au.Count)
		b.Broadcast(message)
	default:
		log.Warnf("Unknown message type %q", message.Type)
	}
}
