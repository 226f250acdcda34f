// Package wavmic decodes WAV files into a feature.Microphone.
//
// It lives outside package feature because the decoder links the desktop
// audio stack.
package wavmic

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio/wav"

	"github.com/matzehuels/chromascribe/pkg/feature"
)

// Microphone plays a WAV file as if it were a live microphone.
// With Realtime set, reads are paced to the file's sample rate.
type Microphone struct {
	Path     string
	Realtime bool
}

// Open implements feature.Microphone.
func (m *Microphone) Open(ctx context.Context) (feature.PCMReader, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, err
	}
	stream, err := wav.DecodeWithoutResampling(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", m.Path, err)
	}
	return &wavReader{
		file:     f,
		src:      bufio.NewReader(stream),
		rate:     stream.SampleRate(),
		realtime: m.Realtime,
		start:    time.Now(),
	}, nil
}

// wavReader downmixes the decoder's 16-bit stereo output to mono floats.
type wavReader struct {
	file     *os.File
	src      *bufio.Reader
	rate     int
	realtime bool
	start    time.Time
	read     int64
	frame    [4]byte
}

func (r *wavReader) SampleRate() int { return r.rate }

func (r *wavReader) Read(ctx context.Context, buf []float64) (int, error) {
	n := 0
	for n < len(buf) {
		if _, err := io.ReadFull(r.src, r.frame[:]); err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			r.read += int64(n)
			return n, err
		}
		left := int16(binary.LittleEndian.Uint16(r.frame[0:2]))
		right := int16(binary.LittleEndian.Uint16(r.frame[2:4]))
		buf[n] = (float64(left) + float64(right)) / 2 / 32768
		n++
	}
	r.read += int64(n)

	if r.realtime {
		due := r.start.Add(time.Duration(r.read) * time.Second / time.Duration(r.rate))
		if wait := time.Until(due); wait > 0 {
			select {
			case <-ctx.Done():
				return n, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return n, nil
}

func (r *wavReader) Close() error { return r.file.Close() }
