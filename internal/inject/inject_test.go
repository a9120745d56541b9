package inject

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shortstrade/feedcore/internal/model"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func injectFrame(t *testing.T, ev model.InjectionEvent) []byte {
	t.Helper()
	msg, err := json.Marshal(InjectMsg{Event: ev})
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(Envelope{Type: "inject", Msg: msg})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestClientConnectAndClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := DefaultClientConfig()
	cfg.URL = wsURL(server)

	client := NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !client.IsConnected() {
		t.Error("expected IsConnected after Connect")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if client.IsConnected() {
		t.Error("expected not connected after Close")
	}
}

func TestSubscriberDeliversAndAcks(t *testing.T) {
	ev := model.InjectionEvent{
		ItemID: "gen-1",
		Media:  model.Media{Kind: model.MediaFile, Ref: "https://cdn/clip.mp4"},
		Markets: []model.MarketRef{
			{MarketID: "KXNBAGAME-1", SeriesID: "KXNBAGAME", YesPrice: 60, NoPrice: 42},
		},
		Side: "yes",
	}

	var mu sync.Mutex
	var acks []Ack

	server := mockWSServer(t, func(conn *websocket.Conn) {
		if err := conn.WriteMessage(websocket.TextMessage, injectFrame(t, ev)); err != nil {
			return
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ack Ack
			if json.Unmarshal(data, &ack) == nil && ack.Type == "ack" {
				mu.Lock()
				acks = append(acks, ack)
				mu.Unlock()
			}
		}
	})
	defer server.Close()

	delivered := make(chan model.InjectionEvent, 1)
	sub := NewSubscriber(SubscriberConfig{URL: wsURL(server)}, HandlerFunc(func(ev model.InjectionEvent) {
		delivered <- ev
	}), nil)

	if err := sub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sub.Stop()

	select {
	case got := <-delivered:
		if got.ItemID != "gen-1" || got.Media.Ref != "https://cdn/clip.mp4" || len(got.Markets) != 1 {
			t.Errorf("delivered event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(acks) == 1
	})
	mu.Lock()
	if acks[0].ItemID != "gen-1" {
		t.Errorf("ack item = %q, want gen-1", acks[0].ItemID)
	}
	mu.Unlock()
}

func TestSubscriberAssignsMissingItemID(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		frame := injectFrame(t, model.InjectionEvent{
			Media: model.Media{Kind: model.MediaFile, Ref: "https://cdn/anon.mp4"},
		})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	delivered := make(chan model.InjectionEvent, 1)
	sub := NewSubscriber(SubscriberConfig{URL: wsURL(server)}, HandlerFunc(func(ev model.InjectionEvent) {
		delivered <- ev
	}), nil)

	if err := sub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sub.Stop()

	select {
	case got := <-delivered:
		if got.ItemID == "" {
			t.Error("expected a generated item id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSubscriberIgnoresUnknownFrames(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		frames := [][]byte{
			[]byte(`{"type":"promo","msg":{}}`),
			[]byte(`not json`),
			injectFrame(t, model.InjectionEvent{ItemID: "gen-2", Media: model.Media{Kind: model.MediaFile, Ref: "x"}}),
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, f); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	delivered := make(chan model.InjectionEvent, 4)
	sub := NewSubscriber(SubscriberConfig{URL: wsURL(server)}, HandlerFunc(func(ev model.InjectionEvent) {
		delivered <- ev
	}), nil)

	if err := sub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sub.Stop()

	select {
	case got := <-delivered:
		if got.ItemID != "gen-2" {
			t.Errorf("delivered = %+v, want only the inject frame", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inject frame not delivered")
	}

	select {
	case extra := <-delivered:
		t.Errorf("unexpected extra delivery: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriberStartFailsOnBadURL(t *testing.T) {
	sub := NewSubscriber(SubscriberConfig{URL: "ws://127.0.0.1:1"}, HandlerFunc(func(model.InjectionEvent) {}), nil)
	if err := sub.Start(context.Background()); err == nil {
		t.Error("expected connect error")
		sub.Stop()
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
