package wavmic

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeWAV writes 16-bit mono PCM.
func writeWAV(t *testing.T, path string, rate int, samples []int16) {
	t.Helper()
	var b bytes.Buffer
	data := len(samples) * 2
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+data))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&b, binary.LittleEndian, uint32(rate))
	binary.Write(&b, binary.LittleEndian, uint32(rate*2))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(data))
	binary.Write(&b, binary.LittleEndian, samples)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMicrophoneReadsMonoFloats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 8000, []int16{16384, -16384, 0, 32767})

	r, err := (&Microphone{Path: path}).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if r.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", r.SampleRate())
	}

	buf := make([]float64, 8)
	n, err := r.Read(context.Background(), buf)
	if !errors.Is(err, io.EOF) {
		t.Errorf("Read() error = %v, want io.EOF after short read", err)
	}
	if n != 4 {
		t.Fatalf("Read() n = %d, want 4", n)
	}
	want := []float64{0.5, -0.5, 0, 32767.0 / 32768}
	for i, w := range want {
		if math.Abs(buf[i]-w) > 1e-9 {
			t.Errorf("sample %d = %v, want %v", i, buf[i], w)
		}
	}
}

func TestMicrophoneMissingFile(t *testing.T) {
	if _, err := (&Microphone{Path: filepath.Join(t.TempDir(), "none.wav")}).Open(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
