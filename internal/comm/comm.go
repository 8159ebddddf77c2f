package comm

import (
	"encoding/json"
)

// event types broadcast to web clients
const (
	EventQRData      = "qrData"
	EventQROnly      = "qrData-only"
	EventNumWon      = "NumWon"
	EventActiveUsers = "active-users-updated"

	// sent by an admin client to change the displayed viewer count
	EventUpdateActiveUsers = "update-active-users"
	EventError             = "error"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "qrData", "NumWon"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"` // empty means broadcast
}

// QRData is the full payment profile of one collection account.
type QRData struct {
	QR              string `json:"qr"`
	IFSCCode        string `json:"ifscCode"`
	AccountNumber   string `json:"accountNumber"`
	SelectedAccount string `json:"selectedAccount"`
}

type QROnly struct {
	QR              string `json:"qr"`
	SelectedAccount string `json:"selectedAccount"`
}

type NumWon struct {
	GameId        string `json:"gameId"`
	WinningNumber int    `json:"winningNumber"`
	SlotNumber    int    `json:"slotNumber"`
}

type ActiveUsers struct {
	Count int64 `json:"count"`
}

// UpdateActiveUsers is the admin request; Token is the admin JWT.
type UpdateActiveUsers struct {
	Count int64  `json:"count"`
	Token string `json:"token"`
}

// NewMessage marshals data into a WSMessage of the given type.
func NewMessage(msgType string, data interface{}) (*WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: msgType, Data: raw}, nil
}
