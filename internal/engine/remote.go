package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NadaMuhamed/AI-chatbot/internal/conversation"
)

// RemoteDialog forwards a conversation to a dialog-model sidecar over HTTP.
type RemoteDialog struct {
	url    string
	client *http.Client
}

func NewRemoteDialog(url string) *RemoteDialog {
	return &RemoteDialog{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type dialogRequest struct {
	Messages []conversation.Turn `json:"messages"`
	Input    string              `json:"input"`
}

type dialogResponse struct {
	Response string `json:"response"`
}

func (d *RemoteDialog) Reply(ctx context.Context, history []conversation.Turn, userText string) (string, error) {
	payload, err := json.Marshal(dialogRequest{Messages: history, Input: userText})
	if err != nil {
		return "", fmt.Errorf("marshal dialog request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create dialog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dialog engine request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("dialog engine status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out dialogResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode dialog response: %w", err)
	}
	return out.Response, nil
}

// RemoteRecognizer posts a complete WAV utterance to a recognition sidecar.
type RemoteRecognizer struct {
	url    string
	client *http.Client
}

func NewRemoteRecognizer(url string) *RemoteRecognizer {
	return &RemoteRecognizer{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type recognizeResponse struct {
	Text string `json:"text"`
}

func (r *RemoteRecognizer) Transcribe(ctx context.Context, wavPath string) (string, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("read utterance: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create recognize request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	res, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("recognition engine request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("recognition engine status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out recognizeResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode recognize response: %w", err)
	}
	return out.Text, nil
}
