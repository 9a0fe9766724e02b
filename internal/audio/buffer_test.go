package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// makeWAV builds a minimal PCM WAV file for decoding tests.
func makeWAV(rate, channels int, samples []int16) []byte {
	var data bytes.Buffer
	for _, s := range samples {
		binary.Write(&data, binary.LittleEndian, s)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func TestDecodeWAVStereoAtEngineRate(t *testing.T) {
	// One second of stereo at the engine rate.
	samples := make([]int16, SampleRate*2)
	wav := makeWAV(SampleRate, 2, samples)

	buf, err := Decode(wav, "audio/wav")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if buf.Duration != time.Second {
		t.Errorf("duration = %v, want 1s", buf.Duration)
	}
	if len(buf.Data) != SampleRate*BytesPerSample {
		t.Errorf("data length = %d, want %d", len(buf.Data), SampleRate*BytesPerSample)
	}
}

func TestDecodeWAVMonoUpmix(t *testing.T) {
	samples := []int16{100, 200, 300, 400}
	wav := makeWAV(SampleRate, 1, samples)

	buf, err := Decode(wav, "audio/x-wav")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	// Four mono samples become four stereo frames.
	if len(buf.Data) != 4*BytesPerSample {
		t.Fatalf("data length = %d, want %d", len(buf.Data), 4*BytesPerSample)
	}
	l := int16(binary.LittleEndian.Uint16(buf.Data[0:2]))
	r := int16(binary.LittleEndian.Uint16(buf.Data[2:4]))
	if l != 100 || r != 100 {
		t.Errorf("first frame = (%d, %d), want (100, 100)", l, r)
	}
}

func TestDecodeWAVResample(t *testing.T) {
	// Half the engine rate should roughly double the frame count.
	rate := SampleRate / 2
	samples := make([]int16, rate*2) // one second stereo
	wav := makeWAV(rate, 2, samples)

	buf, err := Decode(wav, "audio/wav")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	frames := len(buf.Data) / BytesPerSample
	if frames < SampleRate-1 || frames > SampleRate+1 {
		t.Errorf("resampled frames = %d, want ~%d", frames, SampleRate)
	}
	if d := buf.Duration - time.Second; d < -5*time.Millisecond || d > 5*time.Millisecond {
		t.Errorf("duration = %v, want ~1s", buf.Duration)
	}
}

func TestDecodeRawPCM(t *testing.T) {
	pcm := make([]byte, SampleRate*BytesPerSample/2) // half a second
	buf, err := Decode(pcm, "audio/pcm")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if buf.Duration != 500*time.Millisecond {
		t.Errorf("duration = %v, want 500ms", buf.Duration)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		mimeType string
	}{
		{"unknown mime", []byte{1, 2, 3, 4}, "audio/ogg"},
		{"garbage wav", []byte("nonsense"), "audio/wav"},
		{"empty payload", nil, "audio/wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.payload, tt.mimeType); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := Decode([]byte{1, 2, 3, 4}, "audio/flac"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeMimeParameters(t *testing.T) {
	samples := make([]int16, 8)
	wav := makeWAV(SampleRate, 2, samples)
	if _, err := Decode(wav, "audio/wav; charset=binary"); err != nil {
		t.Errorf("mime parameters should be ignored: %v", err)
	}
}

func TestLoopReaderWrapsAround(t *testing.T) {
	r := &loopReader{data: []byte{1, 2, 3}}
	out := make([]byte, 8)
	n, err := r.Read(out)
	if err != nil || n != 8 {
		t.Fatalf("Read = (%d, %v), want (8, nil)", n, err)
	}
	want := []byte{1, 2, 3, 1, 2, 3, 1, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}
}
