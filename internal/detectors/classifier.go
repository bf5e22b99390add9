package detectors

import "math"

// SpeechClassifier judges individual fixed-size PCM frames. Implementations
// carry internal smoothing state, so a classifier must not be shared across
// concurrent detections; Reset prepares it for a fresh stream.
type SpeechClassifier interface {
	IsSpeech(frame []int16, sampleRate int) bool
	Reset()
}

// EnergyClassifier is a pure-Go frame classifier built on a smoothed RMS
// energy gate with hysteresis and hangover. Aggressiveness 0..3 trades recall
// for precision the way hosted VAD backends do: higher values demand more
// energy above the adaptive noise floor before a frame counts as speech.
type EnergyClassifier struct {
	aggressiveness int

	noiseFloor float64
	active     bool
	hangover   int
	frames     int
}

// NewEnergyClassifier returns a classifier tuned for the given aggressiveness
// (clamped to 0..3).
func NewEnergyClassifier(aggressiveness int) *EnergyClassifier {
	if aggressiveness < 0 {
		aggressiveness = 0
	}
	if aggressiveness > 3 {
		aggressiveness = 3
	}
	return &EnergyClassifier{aggressiveness: aggressiveness}
}

// Per-aggressiveness tuning: the multiple of the noise floor required to
// enter the active state, the multiple below which it releases, and how many
// quiet frames are still reported as speech after a burst ends.
var energyTuning = [4]struct {
	riseRatio float64
	fallRatio float64
	hangover  int
}{
	{2.0, 1.3, 3},
	{2.8, 1.6, 2},
	{3.6, 1.9, 1},
	{4.5, 2.2, 0},
}

// Reset clears the adaptive state for a new stream.
func (c *EnergyClassifier) Reset() {
	c.noiseFloor = 0
	c.active = false
	c.hangover = 0
	c.frames = 0
}

// IsSpeech reports whether the frame is speech-like. The first few frames
// seed the noise floor and always report false.
func (c *EnergyClassifier) IsSpeech(frame []int16, sampleRate int) bool {
	rms := frameRMS(frame)
	tune := energyTuning[c.aggressiveness]

	// Seed the floor from the opening frames before gating anything.
	if c.frames < 4 {
		c.frames++
		if rms > c.noiseFloor {
			c.noiseFloor = rms
		}
		if c.noiseFloor < 1.0 {
			c.noiseFloor = 1.0
		}
		return false
	}

	if c.active {
		if rms < c.noiseFloor*tune.fallRatio {
			c.active = false
			c.hangover = tune.hangover
		}
	} else if rms >= c.noiseFloor*tune.riseRatio {
		c.active = true
	}

	// Track the floor only on quiet frames so sustained speech does not
	// inflate it; slow rise lets it recover after loud passages.
	if !c.active {
		if rms < c.noiseFloor {
			c.noiseFloor = c.noiseFloor*0.9 + rms*0.1
		} else {
			c.noiseFloor = c.noiseFloor*0.995 + rms*0.005
		}
		if c.noiseFloor < 1.0 {
			c.noiseFloor = 1.0
		}
	}

	if c.active {
		return true
	}
	if c.hangover > 0 {
		c.hangover--
		return true
	}
	return false
}

func frameRMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}
