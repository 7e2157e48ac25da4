package engine

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/NadaMuhamed/AI-chatbot/internal/audio"
)

// synthServer runs a synthesis sidecar stand-in that answers each connection
// with the given frame script after reading the request.
func synthServer(t *testing.T, handle func(t *testing.T, conn *websocket.Conn, req synthRequest)) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req synthRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		handle(t, conn, req)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSSynthesizerCollectsChunks(t *testing.T) {
	want := []float32{0.25, -0.5, 1.0}
	pcm := audio.Float32ToPCM16LE(want)

	srv := synthServer(t, func(t *testing.T, conn *websocket.Conn, req synthRequest) {
		if req.Text != "good morning" {
			t.Errorf("request text = %q, want %q", req.Text, "good morning")
		}
		// Two chunks split mid-waveform, then the closing frame.
		conn.WriteJSON(synthFrame{Type: "chunk", AudioBase64: base64.StdEncoding.EncodeToString(pcm[:2])})
		conn.WriteJSON(synthFrame{Type: "chunk", AudioBase64: base64.StdEncoding.EncodeToString(pcm[2:])})
		conn.WriteJSON(synthFrame{Type: "final", SampleRate: 22050})
	})
	defer srv.Close()

	rate, samples, err := NewWSSynthesizer(wsURL(srv)).Synthesize(context.Background(), "good morning")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if rate != 22050 {
		t.Fatalf("sample rate = %d, want 22050", rate)
	}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if diff := samples[i] - want[i]; diff > 1.0/32767 || diff < -1.0/32767 {
			t.Fatalf("sample %d = %f, want about %f", i, samples[i], want[i])
		}
	}
}

func TestWSSynthesizerDefaultsSampleRate(t *testing.T) {
	srv := synthServer(t, func(t *testing.T, conn *websocket.Conn, _ synthRequest) {
		conn.WriteJSON(synthFrame{Type: "final"})
	})
	defer srv.Close()

	rate, _, err := NewWSSynthesizer(wsURL(srv)).Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if rate != 16000 {
		t.Fatalf("sample rate = %d, want the 16000 default", rate)
	}
}

func TestWSSynthesizerSkipsUnknownFrames(t *testing.T) {
	srv := synthServer(t, func(t *testing.T, conn *websocket.Conn, _ synthRequest) {
		conn.WriteJSON(synthFrame{Type: "progress"})
		conn.WriteJSON(synthFrame{Type: "final", SampleRate: 16000})
	})
	defer srv.Close()

	if _, _, err := NewWSSynthesizer(wsURL(srv)).Synthesize(context.Background(), "hi"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
}

func TestWSSynthesizerSurfacesEngineError(t *testing.T) {
	srv := synthServer(t, func(t *testing.T, conn *websocket.Conn, _ synthRequest) {
		conn.WriteJSON(synthFrame{Type: "error", Detail: "vocoder crashed"})
	})
	defer srv.Close()

	_, _, err := NewWSSynthesizer(wsURL(srv)).Synthesize(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "vocoder crashed") {
		t.Fatalf("Synthesize() error = %v, want the engine detail", err)
	}
}

func TestWSSynthesizerDialFailure(t *testing.T) {
	if _, _, err := NewWSSynthesizer("ws://127.0.0.1:1/synthesize").
		Synthesize(context.Background(), "hi"); err == nil {
		t.Fatalf("Synthesize() should fail when the sidecar is unreachable")
	}
}
