package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/dltmdgh0611/ownbrief/internal/audio"
	"github.com/dltmdgh0611/ownbrief/internal/cache"
)

const speechPath = "/api/briefing/speech"

// SpeechClient synthesizes speech for section text. It implements
// briefing.Synthesizer. With a cache attached, identical requests (static
// intro/outro text) skip the network entirely.
type SpeechClient struct {
	*Client
	voice string
	speed float64
	cache *cache.Cache
}

// NewSpeechClient wraps the shared client for the speech endpoint. cache
// may be nil.
func NewSpeechClient(c *Client, voice string, speed float64, audioCache *cache.Cache) *SpeechClient {
	return &SpeechClient{Client: c, voice: voice, speed: speed, cache: audioCache}
}

type speechRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

type speechResponse struct {
	Success      bool    `json:"success"`
	AudioContent string  `json:"audioContent"`
	MimeType     string  `json:"mimeType"`
	Duration     float64 `json:"duration"`
	Error        string  `json:"error"`
	Message      string  `json:"message"`
}

// Synthesize produces a decoded engine-format buffer for text. Undecodable
// payloads are synthesis failures; the pipeline treats them as fatal.
func (c *SpeechClient) Synthesize(ctx context.Context, text string) (*audio.Buffer, error) {
	key := cache.Key(text, c.voice, c.speed)
	if c.cache != nil {
		if pcm, ok := c.cache.Get(key); ok {
			c.logger.Debug("synthesis cache hit", "chars", len(text))
			return bufferFromPCM(pcm), nil
		}
	}

	body := speechRequest{Text: text, Voice: c.voice, Speed: c.speed}
	data, status, err := c.postJSON(ctx, speechPath, body)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}

	var resp speechResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("malformed speech response: %w", err)
	}
	if !resp.Success {
		return nil, serviceError(status, errorEnvelope{Error: resp.Error, Message: resp.Message})
	}

	payload, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("undecodable audio content: %w", err)
	}
	buf, err := audio.Decode(payload, resp.MimeType)
	if err != nil {
		return nil, fmt.Errorf("undecodable audio payload: %w", err)
	}

	// The decoded length is authoritative; a large disagreement with the
	// reported duration usually means a truncated payload.
	if resp.Duration > 0 {
		reported := time.Duration(resp.Duration * float64(time.Second))
		if drift := math.Abs((buf.Duration - reported).Seconds()); drift > 1.0 {
			c.logger.Warn("synthesis duration mismatch",
				"reported", reported, "decoded", buf.Duration)
		}
	}

	if c.cache != nil {
		if err := c.cache.Put(key, buf.Data); err != nil {
			c.logger.Warn("failed to cache synthesized audio", "error", err)
		}
	}
	return buf, nil
}

// bufferFromPCM rebuilds a Buffer from cached engine-format PCM; the
// duration is derived from the sample count.
func bufferFromPCM(pcm []byte) *audio.Buffer {
	frames := len(pcm) / audio.BytesPerSample
	return &audio.Buffer{
		Data:     pcm,
		Duration: time.Duration(frames) * time.Second / time.Duration(audio.SampleRate),
	}
}
