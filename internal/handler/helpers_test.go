package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/chorecal/internal/websocket"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

type subscriber struct {
	conn *ws.Conn
	ctx  context.Context
}

// subscribe connects a real websocket client to hub and waits until the hub
// has registered it.
func subscribe(t *testing.T, hub *websocket.Hub) *subscriber {
	t.Helper()
	srv := httptest.NewServer(websocket.HandleWebSocket(hub))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := ws.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return &subscriber{conn: conn, ctx: ctx}
}

func (s *subscriber) next(t *testing.T) websocket.Message {
	t.Helper()
	_, data, err := s.conn.Read(s.ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg websocket.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}
