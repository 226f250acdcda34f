package feature

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
)

// AudioInput opens a stream of per-frame audio features.
type AudioInput interface {
	Open(ctx context.Context) (AudioStream, error)
}

// AudioStream yields features until it ends with io.EOF.
type AudioStream interface {
	Next(ctx context.Context) (AudioFeatures, error)
	Close() error
}

// Microphone opens a PCM capture device.
type Microphone interface {
	Open(ctx context.Context) (PCMReader, error)
}

// PCMReader reads mono samples in [-1, 1].
type PCMReader interface {
	SampleRate() int
	Read(ctx context.Context, buf []float64) (int, error)
	Close() error
}

// PCMInput analyzes a microphone with an Analyzer. Each Next call consumes
// one frame worth of new samples (HopRate per second) and analyzes the
// trailing analyzer window.
type PCMInput struct {
	Mic      Microphone
	Analyzer *Analyzer
	HopRate  int
}

// Open implements AudioInput.
func (p *PCMInput) Open(ctx context.Context) (AudioStream, error) {
	r, err := p.Mic.Open(ctx)
	if err != nil {
		return nil, err
	}
	rate := p.HopRate
	if rate <= 0 {
		rate = 60
	}
	hop := max(1, r.SampleRate()/rate)
	p.Analyzer.Reset()
	return &pcmStream{
		r:        r,
		analyzer: p.Analyzer,
		window:   make([]float64, p.Analyzer.Size()),
		hop:      make([]float64, hop),
	}, nil
}

type pcmStream struct {
	r        PCMReader
	analyzer *Analyzer
	window   []float64
	hop      []float64
}

func (s *pcmStream) Next(ctx context.Context) (AudioFeatures, error) {
	n, err := s.r.Read(ctx, s.hop)
	if n > 0 {
		// Slide the analysis window left and append the new samples.
		if n >= len(s.window) {
			copy(s.window, s.hop[n-len(s.window):n])
		} else {
			copy(s.window, s.window[n:])
			copy(s.window[len(s.window)-n:], s.hop[:n])
		}
	}
	if err != nil {
		return AudioFeatures{}, err
	}
	return s.analyzer.Analyze(s.window, s.r.SampleRate()), nil
}

func (s *pcmStream) Close() error { return s.r.Close() }

// AudioSource publishes the latest audio features of an input.
// A disabled source reports zero volume and pitch.
type AudioSource struct {
	input  AudioInput
	logger *log.Logger

	mu      sync.Mutex
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}
	stream  AudioStream

	latest slot[AudioFeatures]
}

// NewAudioSource returns a disabled source.
func NewAudioSource(input AudioInput, logger *log.Logger) *AudioSource {
	if logger == nil {
		logger = log.Default()
	}
	return &AudioSource{input: input, logger: logger.WithPrefix("audio")}
}

// Enable opens the input and starts analysis. Failure to open returns
// DEVICE_ACCESS and leaves the source disabled.
func (s *AudioSource) Enable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled {
		return nil
	}
	stream, err := s.input.Open(ctx)
	if err != nil {
		return errs.Wrap(errs.ErrCodeDeviceAccess, err, "microphone unavailable")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.stream, s.cancel = stream, cancel
	s.done = make(chan struct{})
	s.enabled = true

	run := s.latest.begin()
	go s.loop(runCtx, run, stream, s.done)

	s.logger.Debug("enabled")
	return nil
}

// Disable stops analysis and closes the input. It returns after the
// analysis goroutine has exited.
func (s *AudioSource) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}
	s.enabled = false
	s.latest.end()
	s.cancel()
	<-s.done

	if err := s.stream.Close(); err != nil {
		s.logger.Warn("release microphone", "err", errs.Wrap(errs.ErrCodeDisposal, err, "microphone"))
	}
	s.stream, s.cancel, s.done = nil, nil, nil
	s.logger.Debug("disabled")
}

// Enabled reports whether analysis is running.
func (s *AudioSource) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Latest returns the most recent features, or zero when disabled.
func (s *AudioSource) Latest() AudioFeatures {
	v, _ := s.latest.get()
	return v
}

func (s *AudioSource) loop(ctx context.Context, run uint64, stream AudioStream, done chan struct{}) {
	defer close(done)

	for {
		f, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				s.latest.post(run, AudioFeatures{})
				s.logger.Debug("audio stream ended")
				return
			}
			s.logger.Debug("audio read failed", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readBackoff):
			}
			continue
		}
		s.latest.post(run, f)
	}
}
