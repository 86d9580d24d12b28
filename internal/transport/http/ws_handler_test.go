package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/qazaqedu/iquiz-server/internal/proto"
)

func dialRoom(t *testing.T, ctx context.Context, baseURL, roomID string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/api/iquiz/ws/" + roomID
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// readUntilType discards frames until one with the wanted type arrives.
func readUntilType(t *testing.T, ctx context.Context, conn *websocket.Conn, wanted string) map[string]json.RawMessage {
	t.Helper()

	for {
		var raw map[string]json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			t.Fatalf("read waiting for %q: %v", wanted, err)
		}
		var msgType string
		if typeField, ok := raw["type"]; ok {
			_ = json.Unmarshal(typeField, &msgType)
		}
		if msgType == wanted {
			return raw
		}
	}
}

func TestWSSnapshotOnAttach(t *testing.T) {
	ts, svc, _ := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created := createRoom(t, ts.URL)
	if _, err := svc.JoinRoom(ctx, created.RoomID, "Aigerim", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	conn := dialRoom(t, ctx, ts.URL, created.RoomID)

	raw := readUntilType(t, ctx, conn, proto.OutboundTypeSnapshot)
	var players []proto.PlayerPayload
	if err := json.Unmarshal(raw["players"], &players); err != nil {
		t.Fatalf("unmarshal snapshot players: %v", err)
	}
	if len(players) != 1 || players[0].Name != "Aigerim" {
		t.Fatalf("unexpected snapshot players: %+v", players)
	}
}

func TestWSPingPong(t *testing.T) {
	ts, _, _ := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created := createRoom(t, ts.URL)
	conn := dialRoom(t, ctx, ts.URL, created.RoomID)

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	readUntilType(t, ctx, conn, proto.OutboundTypePong)
}

func TestWSPlayerJoinedBroadcast(t *testing.T) {
	ts, svc, _ := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created := createRoom(t, ts.URL)
	conn := dialRoom(t, ctx, ts.URL, created.RoomID)

	// Drain the attach snapshot first so the join event is unambiguous.
	readUntilType(t, ctx, conn, proto.OutboundTypeSnapshot)

	joined, err := svc.JoinRoom(ctx, created.RoomID, "Bekzat", "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	raw := readUntilType(t, ctx, conn, proto.OutboundTypePlayerJoined)
	var player proto.PlayerPayload
	if err := json.Unmarshal(raw["player"], &player); err != nil {
		t.Fatalf("unmarshal joined player: %v", err)
	}
	if player.ID != joined.PlayerID || player.Name != "Bekzat" {
		t.Fatalf("unexpected join payload: %+v", player)
	}

	// Legacy top-level fields still present.
	var legacyName string
	if err := json.Unmarshal(raw["name"], &legacyName); err != nil || legacyName != "Bekzat" {
		t.Fatalf("expected legacy name field, got %v (%v)", legacyName, err)
	}
}

func TestWSBroadcastIsolatedPerRoom(t *testing.T) {
	ts, svc, _ := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	roomA := createRoom(t, ts.URL)
	roomB := createRoom(t, ts.URL)

	connA := dialRoom(t, ctx, ts.URL, roomA.RoomID)
	connB := dialRoom(t, ctx, ts.URL, roomB.RoomID)
	// Drain the attach snapshot and the connected notice on both sides.
	readUntilType(t, ctx, connA, proto.OutboundTypeConnected)
	readUntilType(t, ctx, connB, proto.OutboundTypeConnected)

	if _, err := svc.JoinRoom(ctx, roomA.RoomID, "OnlyInA", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	readUntilType(t, ctx, connA, proto.OutboundTypePlayerJoined)

	// Room B must stay silent.
	readCtx, readCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer readCancel()
	var raw map[string]json.RawMessage
	if err := wsjson.Read(readCtx, connB, &raw); err == nil {
		t.Fatalf("room B received foreign frame: %v", raw)
	}
}

func TestWSMalformedFrameIgnored(t *testing.T) {
	ts, _, _ := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created := createRoom(t, ts.URL)
	conn := dialRoom(t, ctx, ts.URL, created.RoomID)
	readUntilType(t, ctx, conn, proto.OutboundTypeSnapshot)

	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"mystery"}`)); err != nil {
		t.Fatalf("write unknown type: %v", err)
	}

	// The connection survives and still answers pings.
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	readUntilType(t, ctx, conn, proto.OutboundTypePong)
}

func TestWSStatusChangedBroadcast(t *testing.T) {
	ts, svc, _ := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created := createRoom(t, ts.URL)
	conn := dialRoom(t, ctx, ts.URL, created.RoomID)
	readUntilType(t, ctx, conn, proto.OutboundTypeSnapshot)

	if _, err := svc.StartRoom(ctx, created.RoomID); err != nil {
		t.Fatalf("start: %v", err)
	}

	raw := readUntilType(t, ctx, conn, proto.OutboundTypeStatusChanged)
	var status string
	if err := json.Unmarshal(raw["status"], &status); err != nil || status != "started" {
		t.Fatalf("expected started status, got %v (%v)", status, err)
	}
}
