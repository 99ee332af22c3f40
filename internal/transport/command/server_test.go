package command

import (
	"context"
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
	"github.com/Flavius4914/RTS-Engine/internal/sim/world"
)

const testMapJSON = `{
  "id": "cmd_test", "width": 8, "height": 6,
  "terrain": ["........", "........", "........", "........", "........", "........"],
  "kingdoms": [{"id": "red", "name": "Red", "stock": {"WOOD": 100}}],
  "entities": [{"kind": "WORKER", "kingdom": "red", "pos": [1, 1]}]
}`

func dialTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("no repo root above %s", dir)
		}
		dir = parent
	}
	cats, err := catalogs.Load(filepath.Join(dir, "configs"))
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	mapPath := filepath.Join(t.TempDir(), "map.json")
	if err := os.WriteFile(mapPath, []byte(testMapJSON), 0o644); err != nil {
		t.Fatalf("write map: %v", err)
	}
	m, mf, err := grid.LoadMapFile(mapPath, cats.Terrain)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	cfg := world.Config{
		TickRateHz: 20, Seed: 1,
		PhaseTicks: 100000, WeatherEveryTicks: 100000,
		WeatherWeights:       map[string]int{world.WeatherClear: 1},
		CommandBudgetPerTick: 64,
	}
	logger := log.New(os.Stderr, "[test] ", 0)
	w, err := world.New(cfg, cats, m, mf, logger)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()

	srv := httptest.NewServer(NewServer(w, logger).Handler())
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readAck(t *testing.T, conn *websocket.Conn) protocol.AckMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ack protocol.AckMsg
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != protocol.TypeAck {
		t.Fatalf("message type %q", ack.Type)
	}
	return ack
}

func TestCommandSubmitAck(t *testing.T) {
	conn := dialTestServer(t)

	cmd := protocol.Command{
		Type: protocol.TypeCommand, ProtocolVersion: protocol.Version,
		Kind: protocol.CmdMove, KingdomID: "red",
		UnitIDs: []uint64{1}, Target: [2]int{5, 3},
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack := readAck(t, conn)
	if !ack.OK || ack.CommandID == "" {
		t.Fatalf("submit ack %+v", ack)
	}
	if !strings.HasPrefix(ack.CommandID, "C") {
		t.Fatalf("command id %q", ack.CommandID)
	}
}

func TestCommandMalformedRejected(t *testing.T) {
	conn := dialTestServer(t)

	// Unknown kind fails schema validation before touching the world.
	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type": "COMMAND", "kind": "FLY", "kingdom_id": "red"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack := readAck(t, conn)
	if ack.OK || ack.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("schema reject ack %+v", ack)
	}

	// Unknown message type.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "TELEPORT"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack = readAck(t, conn)
	if ack.OK || ack.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("unknown type ack %+v", ack)
	}

	// Unknown kingdom is rejected at enqueue.
	cmd := protocol.Command{
		Type: protocol.TypeCommand, Kind: protocol.CmdMove,
		KingdomID: "nobody", UnitIDs: []uint64{1}, Target: [2]int{2, 2},
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack = readAck(t, conn)
	if ack.OK || ack.Code != protocol.ErrNoPermission {
		t.Fatalf("bad kingdom ack %+v", ack)
	}
}

func TestCancelUnknownCommandIsStale(t *testing.T) {
	conn := dialTestServer(t)

	cancel := protocol.CancelMsg{Type: protocol.TypeCancel, CommandID: "C99999999", KingdomID: "red"}
	if err := conn.WriteJSON(cancel); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack := readAck(t, conn)
	if ack.OK || ack.Code != protocol.ErrStale || ack.CommandID != "C99999999" {
		t.Fatalf("cancel ack %+v", ack)
	}

	// A cancel with no kingdom never reaches the world.
	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type": "CANCEL", "command_id": "C99999999"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack = readAck(t, conn)
	if ack.OK || ack.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("anonymous cancel ack %+v", ack)
	}
}

func TestViewReturnsState(t *testing.T) {
	conn := dialTestServer(t)

	if err := conn.WriteJSON(map[string]string{"type": protocol.TypeView}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read view: %v", err)
	}
	var v struct {
		Type  string `json:"type"`
		Units []struct {
			Kind string `json:"kind"`
		} `json:"units"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if v.Type != "TICK" || len(v.Units) != 1 || v.Units[0].Kind != "WORKER" {
		t.Fatalf("view %s", raw)
	}
}
