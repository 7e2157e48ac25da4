package engine

import (
	"context"
	"fmt"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

// GoogleRecognizer transcribes utterances with Google Cloud Speech.
// Authentication relies on Application Default Credentials.
type GoogleRecognizer struct {
	client *speech.Client
}

func NewGoogleRecognizer(ctx context.Context) (*GoogleRecognizer, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &GoogleRecognizer{client: client}, nil
}

func (g *GoogleRecognizer) Transcribe(ctx context.Context, wavPath string) (string, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("read utterance: %w", err)
	}

	// Sample rate is omitted on purpose: the WAV header carries it.
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:     speechpb.RecognitionConfig_LINEAR16,
			LanguageCode: "en-US",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return "", fmt.Errorf("cloud speech recognize: %w", err)
	}

	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			return result.Alternatives[0].Transcript, nil
		}
	}
	return "", nil
}

func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}
