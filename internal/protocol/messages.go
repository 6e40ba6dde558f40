package protocol

import (
	"bidengine.ai/internal/sim/bidding"
	"bidengine.ai/internal/sim/community"
)

// HELLO (orchestrator -> engine). Each connection is one simulation run.
// OrchestratorID only labels the run; the engine always assigns the
// simulation id.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Strategy        string `json:"strategy,omitempty"`
	OrchestratorID  string `json:"orchestrator_id,omitempty"`
}

// WELCOME (engine -> orchestrator)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SimulationID    string `json:"simulation_id"`
	Strategy        string `json:"strategy"`
}

// BID_REQUEST (orchestrator -> engine). AgentID nil asks for every member.
type BidRequestMsg struct {
	Type      string             `json:"type"`
	RequestID string             `json:"request_id"`
	Phase     int                `json:"phase"`
	AgentID   *int               `json:"agent_id,omitempty"`
	Snapshot  community.Snapshot `json:"snapshot"`
}

type AgentBids struct {
	Agent    int               `json:"agent"`
	PhaseOne []bidding.PairBid `json:"phase_one,omitempty"`
	PhaseTwo []int             `json:"phase_two,omitempty"`
}

// BIDS (engine -> orchestrator)
type BidsMsg struct {
	Type         string             `json:"type"`
	RequestID    string             `json:"request_id"`
	SimulationID string             `json:"simulation_id"`
	Round        int                `json:"round"`
	Phase        int                `json:"phase"`
	Bids         []AgentBids        `json:"bids"`
	Strong       []int              `json:"strong"`
	Sacrifice    *bidding.Sacrifice `json:"sacrifice,omitempty"`
	Digest       string             `json:"digest,omitempty"`
}

// RESET (orchestrator -> engine) starts a new simulation on the connection.
type ResetMsg struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// ERROR (engine -> orchestrator)
type ErrorMsg struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
