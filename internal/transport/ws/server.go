package ws

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"bidengine.ai/internal/protocol"
	"bidengine.ai/internal/sim/simulation"
	"bidengine.ai/internal/sim/tuning"
)

// Server answers bid requests over WebSocket. Every connection is its own
// simulation run with its own strong-agent registry.
type Server struct {
	tune      tuning.Tuning
	recorders []simulation.RoundLogger
	log       *log.Logger

	readTimeout time.Duration
	upgrader    websocket.Upgrader
}

func NewServer(tune tuning.Tuning, recorders []simulation.RoundLogger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		tune:        tune,
		recorders:   recorders,
		log:         logger,
		readTimeout: 60 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		inst := s.handshake(conn)
		if inst == nil {
			return
		}
		s.log.Printf("simulation %s: connected from %s", inst.ID(), r.RemoteAddr)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.dispatch(inst, msg)
			if err := writeJSON(conn, reply); err != nil {
				break
			}
		}
		s.log.Printf("simulation %s: disconnected", inst.ID())
	}
}

func (s *Server) handshake(conn *websocket.Conn) *simulation.Instance {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closePolicy(conn, "bad HELLO")
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return nil
	}

	tune := s.tune
	if hello.Strategy != "" {
		// A requested preset replaces the configured policies.
		tune.Strategy = hello.Strategy
		tune.Pairs.Policy = ""
		tune.Solo.Policy = ""
		tune.Sacrifice.Enabled = nil
	}
	inst, err := simulation.New(simulation.Config{
		Label:     hello.OrchestratorID,
		Tuning:    tune,
		Recorders: s.recorders,
		Logger:    s.log,
	})
	if err != nil {
		_ = writeJSON(conn, errorMsg("", protocol.ErrProtoBadRequest, err))
		return nil
	}
	if err := writeJSON(conn, welcome(inst)); err != nil {
		return nil
	}
	return inst
}

func (s *Server) dispatch(inst *simulation.Instance, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errorMsg("", protocol.ErrProtoBadRequest, err)
	}
	switch base.Type {
	case protocol.TypeBidRequest:
		var req protocol.BidRequestMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			return errorMsg("", protocol.ErrProtoBadRequest, err)
		}
		return s.bid(inst, req)
	case protocol.TypeReset:
		var req protocol.ResetMsg
		_ = json.Unmarshal(msg, &req)
		if err := inst.Reset(); err != nil {
			return errorMsg(req.RequestID, protocol.ErrInternal, err)
		}
		return welcome(inst)
	default:
		return errorMsg("", protocol.ErrProtoBadRequest, fmt.Errorf("unexpected message type %q", base.Type))
	}
}

func (s *Server) bid(inst *simulation.Instance, req protocol.BidRequestMsg) any {
	if req.Phase != protocol.PhaseBoth && req.Phase != protocol.PhaseOne && req.Phase != protocol.PhaseTwo {
		return errorMsg(req.RequestID, protocol.ErrBadPhase, fmt.Errorf("phase %d", req.Phase))
	}
	out := protocol.BidsMsg{
		Type:         protocol.TypeBids,
		RequestID:    req.RequestID,
		SimulationID: inst.ID(),
		Round:        req.Snapshot.Round,
		Phase:        req.Phase,
	}

	if req.AgentID != nil {
		b := protocol.AgentBids{Agent: *req.AgentID}
		if req.Phase != protocol.PhaseTwo {
			one, err := inst.PhaseOne(&req.Snapshot, *req.AgentID)
			if err != nil {
				return errorMsg(req.RequestID, protocol.CodeFor(err), err)
			}
			b.PhaseOne = one
		}
		if req.Phase != protocol.PhaseOne {
			two, err := inst.PhaseTwo(&req.Snapshot, *req.AgentID)
			if err != nil {
				return errorMsg(req.RequestID, protocol.CodeFor(err), err)
			}
			b.PhaseTwo = two
		}
		out.Bids = []protocol.AgentBids{b}
		out.Strong = inst.StrongIDs()
		return out
	}

	entry, err := inst.Round(&req.Snapshot)
	if err != nil {
		return errorMsg(req.RequestID, protocol.CodeFor(err), err)
	}
	out.Bids = make([]protocol.AgentBids, 0, len(entry.Bids))
	for _, ab := range entry.Bids {
		b := protocol.AgentBids{Agent: ab.Agent}
		if req.Phase != protocol.PhaseTwo {
			b.PhaseOne = ab.PhaseOne
		}
		if req.Phase != protocol.PhaseOne {
			b.PhaseTwo = ab.PhaseTwo
		}
		out.Bids = append(out.Bids, b)
	}
	out.Strong = entry.Strong
	out.Sacrifice = entry.Sacrifice
	out.Digest = entry.Digest
	return out
}

func welcome(inst *simulation.Instance) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SimulationID:    inst.ID(),
		Strategy:        inst.Tuning().Strategy,
	}
}

func errorMsg(requestID, code string, err error) protocol.ErrorMsg {
	return protocol.ErrorMsg{Type: protocol.TypeError, RequestID: requestID, Code: code, Message: err.Error()}
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
