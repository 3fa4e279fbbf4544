package analyzer

import (
	"math"
	"testing"

	"github.com/guidoenr/vizbind/internal/source"
)

func TestNextPow2(t *testing.T) {
	cases := map[int]int{
		0:   1,
		1:   1,
		2:   2,
		3:   4,
		5:   8,
		16:  16,
		31:  32,
		257: 512,
	}
	for input, want := range cases {
		if got := nextPow2(input); got != want {
			t.Fatalf("nextPow2(%d)=%d want=%d", input, got, want)
		}
	}
}

func TestAnalyzeEmptyReturnsZeroFrame(t *testing.T) {
	a := New(Config{})
	if got := a.Analyze(nil); got != (Frame{}) {
		t.Fatalf("empty input: %+v", got)
	}
}

func TestAnalyzeSineHasBassEnergy(t *testing.T) {
	a := New(Config{SampleRate: 44100})
	samples := make([]float32, 2048)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 100 * float64(i) / 44100))
	}

	frame := a.Analyze(samples)
	if frame.Bass <= 0 {
		t.Fatalf("100 Hz tone produced no bass energy: %+v", frame)
	}
	if frame.Bass <= frame.Treble {
		t.Fatalf("bass %f not dominant over treble %f for 100 Hz tone", frame.Bass, frame.Treble)
	}
	if frame.RMS <= 0 {
		t.Fatalf("non-silent input produced zero rms")
	}
}

func TestNormalizeWithLowPeakReturnsValue(t *testing.T) {
	if got := normalize(0.5, 0.0); got != 0.5 {
		t.Fatalf("normalize for zero peak: got=%f want=0.5", got)
	}
}

func TestAnalyzeTrackPublishesAllFeatures(t *testing.T) {
	store := source.NewFeatureStore()
	samples := make([]float32, 44100) // one second
	for i := range samples {
		samples[i] = float32(math.Sin(2*math.Pi*220*float64(i)/44100)) * 0.5
	}

	if err := AnalyzeTrack(store, "drums", samples, 44100, 30); err != nil {
		t.Fatalf("analyze track: %v", err)
	}

	for _, featureID := range FeatureIDs() {
		if _, ok := store.Value("drums", featureID, 0.5); !ok {
			t.Fatalf("feature %s missing at t=0.5", featureID)
		}
	}
	if _, ok := store.Value("drums", FeatureRMS, 5.0); ok {
		t.Fatalf("expected miss past track end")
	}
}

func TestProducerRejectsBadFrameRate(t *testing.T) {
	if _, err := NewProducer("drums", 44100, 0); err == nil {
		t.Fatalf("expected frame-rate rejection")
	}
}
