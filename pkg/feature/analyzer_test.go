package feature

import (
	"math"
	"testing"
)

func sine(n, rate int, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func TestAnalyzerSilence(t *testing.T) {
	a := NewAnalyzer(2048, 0.8, 5, 500)
	got := a.Analyze(make([]float64, 2048), 48000)
	if got.Volume != 0 || got.Pitch != 0 {
		t.Errorf("silence = %+v, want zero", got)
	}
}

func TestAnalyzerVolume(t *testing.T) {
	tests := []struct {
		name string
		amp  float64
		want float64
	}{
		{"quiet", 0.05, 0.05 / math.Sqrt2 * 5},
		{"loud is capped", 0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(2048, 0.8, 5, 500)
			// 234.375 Hz completes exactly ten periods in 2048 samples at 48 kHz.
			got := a.Analyze(sine(2048, 48000, 234.375, tt.amp), 48000)
			if math.Abs(got.Volume-tt.want) > 1e-6 {
				t.Errorf("Volume = %v, want %v", got.Volume, tt.want)
			}
		})
	}
}

func TestAnalyzerPitch(t *testing.T) {
	tests := []struct {
		name string
		freq float64
		want float64
	}{
		// Bin width is 48000/2048 = 23.4375 Hz.
		{"bin 10", 234.375, 234.375 / 500},
		{"bin 4", 93.75, 93.75 / 500},
		{"above ceiling is capped", 937.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(2048, 0.8, 5, 500)
			got := a.Analyze(sine(2048, 48000, tt.freq, 0.1), 48000)
			if math.Abs(got.Pitch-tt.want) > 1e-9 {
				t.Errorf("Pitch = %v, want %v", got.Pitch, tt.want)
			}
		})
	}
}

func TestAnalyzerPadsShortBlocks(t *testing.T) {
	a := NewAnalyzer(1024, 0, 1, 500)
	got := a.Analyze([]float64{1, 1, 1, 1}, 8000)
	want := math.Sqrt(4.0 / 1024)
	if math.Abs(got.Volume-want) > 1e-12 {
		t.Errorf("Volume = %v, want %v", got.Volume, want)
	}
}

func TestAnalyzerSmoothingAndReset(t *testing.T) {
	a := NewAnalyzer(2048, 0.8, 5, 500)
	tone := sine(2048, 48000, 234.375, 0.1)
	silence := make([]float64, 2048)

	a.Analyze(tone, 48000)
	// Smoothed magnitudes decay instead of vanishing, so pitch survives one
	// silent block.
	if got := a.Analyze(silence, 48000); got.Pitch == 0 {
		t.Error("pitch dropped to zero immediately; smoothing not applied")
	}

	a.Reset()
	if got := a.Analyze(silence, 48000); got.Pitch != 0 {
		t.Errorf("after Reset pitch = %v, want 0", got.Pitch)
	}
}
