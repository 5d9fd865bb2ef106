package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"event-seating/internal/data/cache"
	"event-seating/internal/data/repository"
	"event-seating/internal/queue"
	"event-seating/internal/realtime"
	"event-seating/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	config := &utils.Config{
		App: utils.AppConfig{CORSOrigins: []string{"http://localhost:3000"}},
		Hold: utils.HoldConfig{
			MaxPerSession: 8,
			TTL:           10 * time.Minute,
			SweepInterval: time.Minute,
		},
		Realtime: utils.RealtimeConfig{SendBuffer: 32, WriteTimeout: time.Second},
	}
	repo := repository.NewMemoryRepository(repository.GenerateSeatMap([]string{"A"}, 2, 5), zap.NewNop())

	app := Wiring(repo, cache.Noop{}, queue.Noop{}, config, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = app.Hub.Shutdown(ctx)
	})
	return app
}

func do(t *testing.T, app *App, method, path, session string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("x-session-id", session)
	}

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return rec, decoded
}

func TestSeatRoutes(t *testing.T) {
	app := newTestApp(t)

	rec, body := do(t, app, http.MethodPost, "/api/seats/session", "", nil)
	if rec.Code != http.StatusCreated || body["sessionId"] == "" || body["success"] != true {
		t.Fatalf("create session: %d %v", rec.Code, body)
	}
	s1 := body["sessionId"].(string)

	tests := []struct {
		name       string
		method     string
		path       string
		session    string
		body       any
		wantStatus int
	}{
		{"hold via header", http.MethodPost, "/api/seats/hold", s1, map[string]string{"seatId": "A-A-1"}, http.StatusOK},
		{"hold via body", http.MethodPost, "/api/seats/hold", "", map[string]string{"seatId": "A-A-2", "sessionId": s1}, http.StatusOK},
		{"hold taken seat", http.MethodPost, "/api/seats/hold", "S2", map[string]string{"seatId": "A-A-1"}, http.StatusConflict},
		{"hold unknown seat", http.MethodPost, "/api/seats/hold", "S2", map[string]string{"seatId": "Z-Z-9"}, http.StatusNotFound},
		{"hold without session", http.MethodPost, "/api/seats/hold", "", map[string]string{"seatId": "A-A-3"}, http.StatusBadRequest},
		{"release foreign hold", http.MethodPost, "/api/seats/release", "S2", map[string]string{"seatId": "A-A-1"}, http.StatusForbidden},
		{"release own hold", http.MethodPost, "/api/seats/release", s1, map[string]string{"seatId": "A-A-2"}, http.StatusOK},
		{"complete foreign seat", http.MethodPost, "/api/seats/complete", "S2", map[string]any{"seatIds": []string{"A-A-1"}}, http.StatusBadRequest},
		{"complete without seats", http.MethodPost, "/api/seats/complete", s1, map[string]any{"seatIds": []string{}}, http.StatusBadRequest},
		{"complete", http.MethodPost, "/api/seats/complete", s1, map[string]any{"seatIds": []string{"A-A-1"}}, http.StatusOK},
		{"status bad enum", http.MethodPatch, "/api/seats/status", "", map[string]any{"seats": []string{"A-A-4"}, "status": "lost"}, http.StatusBadRequest},
		{"status reserved", http.MethodPatch, "/api/seats/status", "", map[string]any{"seats": []string{"A-A-4"}, "status": "reserved"}, http.StatusOK},
		{"cleanup", http.MethodPost, "/api/seats/cleanup", "", nil, http.StatusOK},
		{"list", http.MethodGet, "/api/seats?page=1&limit=4", "", nil, http.StatusOK},
		{"list limit too large", http.MethodGet, "/api/seats?limit=500", "", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, app, tt.method, tt.path, tt.session, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %v", tt.wantStatus, rec.Code, body)
			}
			if rec.Code >= 400 && body["success"] != false {
				t.Fatalf("error responses must carry success=false, got %v", body)
			}
		})
	}
}

func TestListSeatsResponseShape(t *testing.T) {
	app := newTestApp(t)

	rec, body := do(t, app, http.MethodGet, "/api/seats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["total"].(float64) != 10 || body["page"].(float64) != 1 || body["limit"].(float64) != 20 {
		t.Fatalf("unexpected paging fields %v", body)
	}
	if data := body["data"].([]any); len(data) != 10 {
		t.Fatalf("expected 10 seats, got %d", len(data))
	}
}

func TestInvalidBody(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/seats/hold", strings.NewReader("{oops"))
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Event {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var ev realtime.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/seats"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocketChannel(t *testing.T) {
	app := newTestApp(t)
	server := httptest.NewServer(app.Router)
	defer server.Close()

	alice := dial(t, server)
	bob := dial(t, server)

	if ev := readEvent(t, alice); ev.Event != realtime.EventConnected || ev.ClientID == "" {
		t.Fatalf("expected connected, got %+v", ev)
	}
	readEvent(t, bob)

	if err := alice.WriteJSON(map[string]any{"event": "joinSession", "data": map[string]string{"sessionId": "S1"}}); err != nil {
		t.Fatal(err)
	}
	joined := readEvent(t, alice)
	if joined.Event != realtime.EventJoined || joined.SessionID != "S1" {
		t.Fatalf("expected joined, got %+v", joined)
	}
	if seats, ok := joined.Seats.([]any); !ok || len(seats) != 10 {
		t.Fatalf("expected a 10 seat snapshot, got %T", joined.Seats)
	}

	// sessionId omitted: the joined session is used.
	if err := alice.WriteJSON(map[string]any{"event": "hold", "data": map[string]string{"seatId": "A-A-1"}}); err != nil {
		t.Fatal(err)
	}
	for _, conn := range []*websocket.Conn{alice, bob} {
		ev := readEvent(t, conn)
		if ev.Event != realtime.EventSeatHeld || ev.SeatID != "A-A-1" || ev.SessionID != "S1" {
			t.Fatalf("expected seat_held broadcast, got %+v", ev)
		}
	}

	// A conflicting hold is answered only to the sender.
	if err := bob.WriteJSON(map[string]any{"event": "hold_seat", "sessionId": "S2", "seatId": "A-A-1"}); err != nil {
		t.Fatal(err)
	}
	if ev := readEvent(t, bob); ev.Event != realtime.EventError || !strings.Contains(ev.Message, "not available") {
		t.Fatalf("expected conflict error, got %+v", ev)
	}

	if err := bob.WriteMessage(websocket.TextMessage, []byte(`{"event":"dance"}`)); err != nil {
		t.Fatal(err)
	}
	if ev := readEvent(t, bob); ev.Event != realtime.EventError || ev.Message != "unknown event: dance" {
		t.Fatalf("expected unknown event error, got %+v", ev)
	}

	// The channel survives errors.
	rec, _ := do(t, app, http.MethodPost, "/api/seats/release", "S1", map[string]string{"seatId": "A-A-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("release over HTTP: %d", rec.Code)
	}
	if ev := readEvent(t, bob); ev.Event != realtime.EventSeatReleased {
		t.Fatalf("expected seat_released, got %+v", ev)
	}
}
