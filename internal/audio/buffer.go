package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// Buffer holds one decoded audio payload in the engine output format
// (SampleRate, Channels, signed 16-bit little-endian). Ownership transfers
// through the pipeline; a buffer is played at most once.
type Buffer struct {
	Data     []byte
	Duration time.Duration
}

// ErrUnsupportedFormat indicates a payload whose MIME type cannot be decoded.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decode converts an encoded audio payload into an engine-format Buffer.
// Supported MIME types: audio/mpeg (and audio/mp3), audio/wav (and
// audio/x-wav, audio/wave), and audio/pcm (raw s16le at the engine rate).
func Decode(payload []byte, mimeType string) (*Buffer, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty audio payload")
	}

	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case "audio/mpeg", "audio/mp3":
		return decodeMP3(payload)
	case "audio/wav", "audio/x-wav", "audio/wave":
		return decodeWAV(payload)
	case "audio/pcm", "audio/l16":
		return fromPCM(payload, SampleRate, Channels)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}
}

func decodeMP3(payload []byte) (*Buffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("mp3 decode failed: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode failed: %w", err)
	}
	// go-mp3 always emits 16-bit stereo at the stream's sample rate.
	return fromPCM(pcm, dec.SampleRate(), 2)
}

func decodeWAV(payload []byte) (*Buffer, error) {
	rate, channels, bits, data, err := parseWAV(payload)
	if err != nil {
		return nil, err
	}
	if bits != 16 {
		return nil, fmt.Errorf("%w: %d-bit wav", ErrUnsupportedFormat, bits)
	}
	return fromPCM(data, rate, channels)
}

// parseWAV walks the RIFF chunks of a WAV file and returns the PCM stream
// parameters and sample data.
func parseWAV(payload []byte) (rate, channels, bits int, data []byte, err error) {
	if len(payload) < 12 || string(payload[0:4]) != "RIFF" || string(payload[8:12]) != "WAVE" {
		return 0, 0, 0, nil, errors.New("not a wav file")
	}

	pos := 12
	haveFmt := false
	for pos+8 <= len(payload) {
		id := string(payload[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(payload[pos+4 : pos+8]))
		pos += 8
		if pos+size > len(payload) {
			size = len(payload) - pos
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return 0, 0, 0, nil, errors.New("malformed wav fmt chunk")
			}
			format := binary.LittleEndian.Uint16(payload[pos : pos+2])
			if format != 1 { // PCM
				return 0, 0, 0, nil, fmt.Errorf("%w: wav format %d", ErrUnsupportedFormat, format)
			}
			channels = int(binary.LittleEndian.Uint16(payload[pos+2 : pos+4]))
			rate = int(binary.LittleEndian.Uint32(payload[pos+4 : pos+8]))
			bits = int(binary.LittleEndian.Uint16(payload[pos+14 : pos+16]))
			haveFmt = true
		case "data":
			data = payload[pos : pos+size]
		}
		// Chunks are word-aligned.
		pos += size + size%2
	}

	if !haveFmt || data == nil {
		return 0, 0, 0, nil, errors.New("wav missing fmt or data chunk")
	}
	if channels < 1 || channels > 2 || rate <= 0 {
		return 0, 0, 0, nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, channels, rate)
	}
	return rate, channels, bits, data, nil
}

// fromPCM converts s16le PCM at an arbitrary rate and channel count into an
// engine-format Buffer, resampling and upmixing as needed.
func fromPCM(pcm []byte, rate, channels int) (*Buffer, error) {
	if len(pcm) == 0 {
		return nil, errors.New("empty pcm stream")
	}
	frameSize := 2 * channels
	if len(pcm)%frameSize != 0 {
		pcm = pcm[:len(pcm)-len(pcm)%frameSize]
	}

	samples := bytesToSamples(pcm, channels)
	if channels == 1 {
		samples = monoToStereo(samples)
	}
	if rate != SampleRate {
		samples = resample(samples, rate, SampleRate)
	}

	data := samplesToBytes(samples)
	frames := len(samples)
	dur := time.Duration(frames) * time.Second / time.Duration(SampleRate)
	return &Buffer{Data: data, Duration: dur}, nil
}

// frame is one stereo sample pair.
type frame [2]int16

func bytesToSamples(pcm []byte, channels int) []frame {
	frameSize := 2 * channels
	n := len(pcm) / frameSize
	out := make([]frame, n)
	for i := 0; i < n; i++ {
		off := i * frameSize
		l := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
		r := l
		if channels == 2 {
			r = int16(binary.LittleEndian.Uint16(pcm[off+2 : off+4]))
		}
		out[i] = frame{l, r}
	}
	return out
}

func monoToStereo(in []frame) []frame {
	// bytesToSamples already duplicated the mono channel.
	return in
}

// resample performs linear interpolation between neighboring frames.
func resample(in []frame, from, to int) []frame {
	if from == to || len(in) == 0 {
		return in
	}
	outLen := int(int64(len(in)) * int64(to) / int64(from))
	if outLen == 0 {
		outLen = 1
	}
	out := make([]frame, outLen)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		for ch := 0; ch < 2; ch++ {
			a := float64(in[idx][ch])
			b := float64(in[idx+1][ch])
			out[i][ch] = int16(a + (b-a)*frac)
		}
	}
	return out
}

func samplesToBytes(in []frame) []byte {
	out := make([]byte, len(in)*BytesPerSample)
	for i, f := range in {
		binary.LittleEndian.PutUint16(out[i*4:], uint16(f[0]))
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(f[1]))
	}
	return out
}
