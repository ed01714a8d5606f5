package audiosession

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/CrowdSynth/coordinator/internal/types"
)

const liveMusicModel = "models/lyria-realtime-exp"

// newGenaiSessionFactory returns a sessionFactory that opens a genai live
// music session per room.
func newGenaiSessionFactory(apiKey string) sessionFactory {
	return func(ctx context.Context, roomID types.RoomID, initialBPM int) (upstreamSession, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("audiosession: creating genai client: %w", err)
		}

		conn, err := client.Live.Music.Connect(ctx, liveMusicModel, nil)
		if err != nil {
			return nil, fmt.Errorf("audiosession: connecting live music session: %w", err)
		}

		return &genaiSession{conn: conn}, nil
	}
}

// genaiSession adapts the genai live-music connection to upstreamSession.
type genaiSession struct {
	conn *genai.LiveMusicSession
}

func (s *genaiSession) SetMusicGenerationConfig(ctx context.Context, bpm int, density, brightness, temperature float64) error {
	return s.conn.SetMusicGenerationConfig(ctx, genai.LiveMusicGenerationConfig{
		BPM:         int32(bpm),
		Density:     float32(density),
		Brightness:  float32(brightness),
		Temperature: float32(temperature),
	})
}

func (s *genaiSession) SetWeightedPrompts(ctx context.Context, prompts []types.WeightedPrompt) error {
	wp := make([]*genai.WeightedPrompt, len(prompts))
	for i, p := range prompts {
		wp[i] = &genai.WeightedPrompt{Text: p.Text, Weight: float32(p.Weight)}
	}
	return s.conn.SetWeightedPrompts(ctx, wp)
}

func (s *genaiSession) ResetContext(ctx context.Context) error {
	return s.conn.ResetContext(ctx)
}

func (s *genaiSession) Play(ctx context.Context) error {
	return s.conn.Play(ctx)
}

func (s *genaiSession) Stop(ctx context.Context) error {
	return s.conn.Stop(ctx)
}

func (s *genaiSession) Close() error {
	return s.conn.Close()
}

func (s *genaiSession) Receive(ctx context.Context) (*Frame, error) {
	msg, err := s.conn.Receive()
	if err != nil {
		return nil, err
	}
	if msg.ServerContent == nil {
		return &Frame{}, nil
	}

	frame := &Frame{}
	for _, chunk := range msg.ServerContent.AudioChunks {
		if len(chunk.Data) > 0 {
			frame.Audio = append(frame.Audio, chunk.Data...)
		}
	}
	if msg.ServerContent.FilteredPrompt != nil {
		frame.FilteredPrompt = msg.ServerContent.FilteredPrompt.Text
	}
	return frame, nil
}
