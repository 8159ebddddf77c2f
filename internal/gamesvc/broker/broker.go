package broker

import (
	"encoding/json"

	"github.com/avvvet/numbet-services/internal/comm"
	natsconn "github.com/avvvet/numbet-services/internal/nats"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Publisher is the part of *nats.Conn the broker needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Broker publishes game events for the socket service to fan out. Publishing
// is best effort: failures are logged and never reach the caller.
type Broker struct {
	Conn  Publisher
	Topic string
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc, Topic: natsconn.GameTopic}
}

func (b *Broker) QRUpdated(d comm.QRData) {
	b.publishEvent(comm.EventQRData, d)
}

func (b *Broker) QROnlyUpdated(d comm.QROnly) {
	b.publishEvent(comm.EventQROnly, d)
}

func (b *Broker) NumberDrawn(d comm.NumWon) {
	b.publishEvent(comm.EventNumWon, d)
}

func (b *Broker) publishEvent(eventType string, data interface{}) {
	msg, err := comm.NewMessage(eventType, data)
	if err != nil {
		log.Errorf("[broker] unable to marshal %s data: %s", eventType, err)
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("[broker] unable to marshal %s message: %s", eventType, err)
		return
	}

	b.Publish(b.Topic, payload)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
