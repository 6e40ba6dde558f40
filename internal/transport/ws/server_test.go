package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bidengine.ai/internal/protocol"
	"bidengine.ai/internal/sim/simulation"
	"bidengine.ai/internal/sim/tuning"
)

type countingRecorder struct{ n chan simulation.RoundEntry }

func (c countingRecorder) WriteRound(e simulation.RoundEntry) error {
	c.n <- e
	return nil
}

const snapshotJSON = `{"round":1,"members":[{"id":0,"abilities":[5,5],"energy":10},{"id":1,"abilities":[1,1],"energy":10},{"id":2,"abilities":[4,1],"energy":10}],"tasks":[[3,3],[4,4]]}`

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn, v any) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		t.Fatalf("decode base: %v", err)
	}
	if v != nil {
		if err := json.Unmarshal(msg, v); err != nil {
			t.Fatalf("unmarshal %s: %v", base.Type, err)
		}
	}
	return base.Type
}

func hello(t *testing.T, conn *websocket.Conn, extra string) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, `{"type":"HELLO","protocol_version":"`+protocol.Version+`"`+extra+`}`)
	var w protocol.WelcomeMsg
	if typ := recv(t, conn, &w); typ != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %s", typ)
	}
	return w
}

func TestServer_RoundBidsAndRecording(t *testing.T) {
	rec := countingRecorder{n: make(chan simulation.RoundEntry, 4)}
	conn := dial(t, NewServer(tuning.Defaults(), []simulation.RoundLogger{rec}, nil))

	w := hello(t, conn, `,"orchestrator_id":"orch-ws"`)
	if !strings.HasPrefix(w.SimulationID, "orch-ws/") || w.Strategy != tuning.StrategyConservative {
		t.Fatalf("welcome: %+v", w)
	}

	send(t, conn, `{"type":"BID_REQUEST","request_id":"r1","phase":0,"snapshot":`+snapshotJSON+`}`)
	var bids protocol.BidsMsg
	if typ := recv(t, conn, &bids); typ != protocol.TypeBids {
		t.Fatalf("expected BIDS, got %s", typ)
	}
	if bids.RequestID != "r1" || bids.Round != 1 || len(bids.Bids) != 3 || bids.Digest == "" {
		t.Fatalf("bids: %+v", bids)
	}
	if len(bids.Strong) != 1 || bids.Strong[0] != 0 {
		t.Fatalf("strong: %v", bids.Strong)
	}
	if got := bids.Bids[0].PhaseTwo; len(got) != 2 {
		t.Fatalf("strong agent phase two: %v", got)
	}
	select {
	case e := <-rec.n:
		if e.Simulation != w.SimulationID || e.Digest != bids.Digest {
			t.Fatalf("recorded entry: %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("round not recorded")
	}

	send(t, conn, `{"type":"BID_REQUEST","request_id":"r2","phase":1,"agent_id":1,"snapshot":`+snapshotJSON+`}`)
	bids = protocol.BidsMsg{}
	if typ := recv(t, conn, &bids); typ != protocol.TypeBids {
		t.Fatalf("expected BIDS, got %s", typ)
	}
	if len(bids.Bids) != 1 || bids.Bids[0].Agent != 1 || len(bids.Bids[0].PhaseOne) == 0 || len(bids.Bids[0].PhaseTwo) != 0 {
		t.Fatalf("single agent phase one: %+v", bids.Bids)
	}
}

func TestServer_Errors(t *testing.T) {
	conn := dial(t, NewServer(tuning.Defaults(), nil, nil))
	hello(t, conn, "")

	var e protocol.ErrorMsg
	send(t, conn, `{"type":"BID_REQUEST","request_id":"r1","phase":1,"agent_id":9,"snapshot":`+snapshotJSON+`}`)
	if typ := recv(t, conn, &e); typ != protocol.TypeError || e.Code != protocol.ErrUnknownAgent || e.RequestID != "r1" {
		t.Fatalf("unknown agent: %s %+v", typ, e)
	}

	send(t, conn, `{"type":"BID_REQUEST","request_id":"r2","phase":0,"snapshot":{"members":[{"id":0,"abilities":[1,1],"energy":1}],"tasks":[[1]]}}`)
	if typ := recv(t, conn, &e); typ != protocol.TypeError || e.Code != protocol.ErrDimensionMismatch {
		t.Fatalf("dimension mismatch: %s %+v", typ, e)
	}

	send(t, conn, `{"type":"BID_REQUEST","request_id":"r3","phase":7,"snapshot":`+snapshotJSON+`}`)
	if typ := recv(t, conn, &e); typ != protocol.TypeError || e.Code != protocol.ErrBadPhase {
		t.Fatalf("bad phase: %s %+v", typ, e)
	}

	send(t, conn, `{"type":"NOPE"}`)
	if typ := recv(t, conn, &e); typ != protocol.TypeError || e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("unknown type: %s %+v", typ, e)
	}
}

func TestServer_ResetStartsNewSimulation(t *testing.T) {
	conn := dial(t, NewServer(tuning.Defaults(), nil, nil))
	first := hello(t, conn, `,"strategy":"strong-first"`)
	if first.Strategy != tuning.StrategyStrongFirst {
		t.Fatalf("strategy: %+v", first)
	}

	send(t, conn, `{"type":"BID_REQUEST","request_id":"r1","phase":2,"snapshot":`+snapshotJSON+`}`)
	var bids protocol.BidsMsg
	recv(t, conn, &bids)
	if len(bids.Strong) != 1 {
		t.Fatalf("strong before reset: %v", bids.Strong)
	}

	send(t, conn, `{"type":"RESET","request_id":"x"}`)
	var w protocol.WelcomeMsg
	if typ := recv(t, conn, &w); typ != protocol.TypeWelcome || w.SimulationID == first.SimulationID {
		t.Fatalf("reset welcome: %s %+v", typ, w)
	}

	// No tasks: nothing is classified in the new run.
	send(t, conn, `{"type":"BID_REQUEST","request_id":"r2","phase":2,"snapshot":{"members":[{"id":0,"abilities":[5,5],"energy":10}],"tasks":[]}}`)
	bids = protocol.BidsMsg{}
	recv(t, conn, &bids)
	if len(bids.Strong) != 0 {
		t.Fatalf("registry leaked across reset: %v", bids.Strong)
	}
}

func TestServer_RejectsBadHandshake(t *testing.T) {
	conn := dial(t, NewServer(tuning.Defaults(), nil, nil))
	send(t, conn, `{"type":"HELLO","protocol_version":"0.1"}`)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}

	conn = dial(t, NewServer(tuning.Defaults(), nil, nil))
	send(t, conn, `{"type":"HELLO","protocol_version":"`+protocol.Version+`","strategy":"greedy"}`)
	var e protocol.ErrorMsg
	if typ := recv(t, conn, &e); typ != protocol.TypeError || e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("unknown strategy: %s %+v", typ, e)
	}
}

func TestServer_SameOrchestratorIDGetsDistinctSimulations(t *testing.T) {
	rec := countingRecorder{n: make(chan simulation.RoundEntry, 4)}
	srv := NewServer(tuning.Defaults(), []simulation.RoundLogger{rec}, nil)

	var ids []string
	for i := 0; i < 2; i++ {
		conn := dial(t, srv)
		w := hello(t, conn, `,"orchestrator_id":"orch-1"`)
		send(t, conn, `{"type":"BID_REQUEST","request_id":"r1","phase":0,"snapshot":`+snapshotJSON+`}`)
		var bids protocol.BidsMsg
		if typ := recv(t, conn, &bids); typ != protocol.TypeBids || bids.SimulationID != w.SimulationID {
			t.Fatalf("bids: %s %+v", typ, bids)
		}
		ids = append(ids, w.SimulationID)
	}
	if ids[0] == ids[1] {
		t.Fatalf("connections sharing orchestrator_id reused simulation id %s", ids[0])
	}
	for i := 0; i < 2; i++ {
		e := <-rec.n
		if e.Seq != 1 || e.Simulation != ids[i] {
			t.Fatalf("recorded entry %d: simulation=%s seq=%d", i, e.Simulation, e.Seq)
		}
	}
}
