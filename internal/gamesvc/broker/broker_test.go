package broker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/avvvet/numbet-services/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *capture) Publish(subject string, data []byte) error {
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return c.err
}

func TestBrokerPublishesEvents(t *testing.T) {
	c := &capture{}
	b := &Broker{Conn: c, Topic: "game.service"}

	b.NumberDrawn(comm.NumWon{GameId: "GAME01032024", WinningNumber: 7, SlotNumber: 2})
	b.QRUpdated(comm.QRData{QR: "q.png", IFSCCode: "HDFC0001234", AccountNumber: "123456789", SelectedAccount: "account1"})
	b.QROnlyUpdated(comm.QROnly{QR: "q2.png", SelectedAccount: "account2"})

	require.Len(t, c.payloads, 3)
	assert.Equal(t, []string{"game.service", "game.service", "game.service"}, c.subjects)

	var msg comm.WSMessage
	require.NoError(t, json.Unmarshal(c.payloads[0], &msg))
	assert.Equal(t, comm.EventNumWon, msg.Type)
	assert.Empty(t, msg.SocketId)
	assert.JSONEq(t, `{"gameId":"GAME01032024","winningNumber":7,"slotNumber":2}`, string(msg.Data))

	require.NoError(t, json.Unmarshal(c.payloads[1], &msg))
	assert.Equal(t, comm.EventQRData, msg.Type)
	assert.JSONEq(t, `{"qr":"q.png","ifscCode":"HDFC0001234","accountNumber":"123456789","selectedAccount":"account1"}`, string(msg.Data))

	require.NoError(t, json.Unmarshal(c.payloads[2], &msg))
	assert.Equal(t, comm.EventQROnly, msg.Type)
}

func TestBrokerSwallowsPublishErrors(t *testing.T) {
	c := &capture{err: errors.New("nats: connection closed")}
	b := &Broker{Conn: c, Topic: "game.service"}

	assert.NotPanics(t, func() {
		b.NumberDrawn(comm.NumWon{WinningNumber: 1, SlotNumber: 1})
	})
	assert.Len(t, c.payloads, 1)
}
