package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello      = "HELLO"
	TypeWelcome    = "WELCOME"
	TypeBidRequest = "BID_REQUEST"
	TypeBids       = "BIDS"
	TypeReset      = "RESET"
	TypeError      = "ERROR"
)

// Bidding phases. PhaseBoth asks for Phase I and Phase II in one reply.
const (
	PhaseBoth = 0
	PhaseOne  = 1
	PhaseTwo  = 2
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
