package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/core/ports"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// pair dials a throwaway server and hands back both ends: the engine-side
// adapter and the raw browser-side connection.
func pair(t *testing.T) (*Conn, *websocket.Conn) {
	t.Helper()

	serverSide := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverSide <- New(raw, nil)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-serverSide:
		t.Cleanup(func() { conn.Close() })
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side never upgraded")
		return nil, nil
	}
}

func readFrame(t *testing.T, client *websocket.Conn) map[string]any {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	if err := client.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

type recordingSink struct {
	mu       sync.Mutex
	messages []string
	origins  []domain.Origin
	typing   []bool
	seen     chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{seen: make(chan struct{}, 16)}
}

func (s *recordingSink) HandleUserMessage(text string, origin domain.Origin) bool {
	s.mu.Lock()
	s.messages = append(s.messages, text)
	s.origins = append(s.origins, origin)
	s.mu.Unlock()
	s.seen <- struct{}{}
	return true
}

func (s *recordingSink) SetTyping(typing bool) {
	s.mu.Lock()
	s.typing = append(s.typing, typing)
	s.mu.Unlock()
	s.seen <- struct{}{}
}

func (s *recordingSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never saw the frame")
	}
}

func TestHandshakeRecordsCapabilities(t *testing.T) {
	conn, client := pair(t)

	if conn.Supported() {
		t.Fatal("speech should be off before the hello")
	}
	if err := client.WriteJSON(map[string]any{"type": "hello", "speech_supported": true}); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	if err := conn.Handshake(2 * time.Second); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if !conn.Supported() {
		t.Fatal("capabilities not recorded")
	}
}

func TestHandshakeWithoutHelloReplaysFrame(t *testing.T) {
	conn, client := pair(t)

	if err := client.WriteJSON(map[string]any{"type": "text", "text": "hello there"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.Handshake(2 * time.Second); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if conn.Supported() {
		t.Fatal("no hello means no speech")
	}

	sink := newRecordingSink()
	go conn.Run(context.Background(), sink)
	sink.wait(t)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.messages) != 1 || sink.messages[0] != "hello there" {
		t.Fatalf("messages = %v", sink.messages)
	}
	if sink.origins[0] != domain.OriginTyped {
		t.Fatalf("origin = %v", sink.origins[0])
	}
}

func TestDirectivesReachClient(t *testing.T) {
	conn, client := pair(t)

	conn.Speak("Welcome.")
	frame := readFrame(t, client)
	if frame["type"] != "speak" || frame["text"] != "Welcome." {
		t.Fatalf("unexpected frame %v", frame)
	}

	conn.StartListening(true)
	frame = readFrame(t, client)
	if frame["type"] != "listen" || frame["enabled"] != true || frame["continuous"] != true {
		t.Fatalf("unexpected frame %v", frame)
	}

	conn.AppendTranscript(domain.Message{Sender: domain.SenderSystem, Text: "Hi."})
	frame = readFrame(t, client)
	if frame["type"] != "message" || frame["sender"] != "system" || frame["id"] == nil {
		t.Fatalf("unexpected frame %v", frame)
	}

	conn.Navigate("home")
	frame = readFrame(t, client)
	if frame["type"] != "navigate" || frame["target"] != "home" {
		t.Fatalf("unexpected frame %v", frame)
	}
}

func TestRunDispatchesInput(t *testing.T) {
	conn, client := pair(t)
	sink := newRecordingSink()

	go conn.Run(context.Background(), sink)

	client.WriteJSON(map[string]any{"type": "text", "text": "pothole on main street"})
	sink.wait(t)
	client.WriteJSON(map[string]any{"type": "utterance", "text": "auto location", "origin": "voice-cmd"})
	sink.wait(t)
	client.WriteJSON(map[string]any{"type": "focus", "active": true})
	sink.wait(t)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.messages) != 2 {
		t.Fatalf("messages = %v", sink.messages)
	}
	if sink.origins[0] != domain.OriginTyped || sink.origins[1] != domain.OriginVoiceCommand {
		t.Fatalf("origins = %v", sink.origins)
	}
	if len(sink.typing) != 1 || !sink.typing[0] {
		t.Fatalf("typing = %v", sink.typing)
	}
}

func TestLocateRoundTrip(t *testing.T) {
	conn, client := pair(t)
	sink := newRecordingSink()
	go conn.Run(context.Background(), sink)

	go func() {
		frame := readFrame(t, client)
		if frame["type"] != "locate" {
			t.Errorf("expected locate frame, got %v", frame)
			return
		}
		client.WriteJSON(map[string]any{"type": "position", "lat": 18.5204, "lon": 73.8567})
	}()

	pos, err := conn.Locate(context.Background())
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if pos.Lat != 18.5204 || pos.Lon != 73.8567 {
		t.Fatalf("pos = %+v", pos)
	}
}

func TestLocateDenied(t *testing.T) {
	conn, client := pair(t)
	sink := newRecordingSink()
	go conn.Run(context.Background(), sink)

	go func() {
		readFrame(t, client)
		client.WriteJSON(map[string]any{"type": "position_error", "reason": "denied"})
	}()

	_, err := conn.Locate(context.Background())
	if !errors.Is(err, ports.ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
}

func TestLocateTimesOutWithContext(t *testing.T) {
	conn, _ := pair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := conn.Locate(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}
