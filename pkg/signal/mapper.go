package signal

import (
	"sync"

	"github.com/moodlens/moodlens/pkg/score"
)

// Presentation tuning constants. They shape how scores translate into
// visuals and carry no correctness contract beyond stable defaults.
const (
	// baseSpeed and baseBrightness are the floor values with no signal at all.
	baseSpeed      = 0.2
	baseBrightness = 0.35

	// activitySpeedGain scales the typing-activity scalar into extra speed.
	activitySpeedGain = 0.08

	// hitBrightnessGain scales lexical hit density into extra brightness.
	hitBrightnessGain = 0.5

	// textLenRef is the text length at which length-driven brightness saturates.
	textLenRef = 200

	maxSpeed      = 1.5
	maxBrightness = 1.0
)

// Percentages clamps the raw per-emotion totals to non-negative values and
// normalizes them to percentages summing to 100. All-zero (or all-negative)
// input yields all-zero percentages.
func Percentages(r score.Result) (anger, joy, sad float64) {
	a := clampZero(r.Anger)
	j := clampZero(r.Joy)
	s := clampZero(r.Sad)

	total := a + j + s
	if total == 0 {
		return 0, 0, 0
	}
	return a / total * 100, j / total * 100, s / total * 100
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// VisualParams is the rendering-facing output: three emotion mix weights in
// [0, 1] plus animation speed and brightness.
type VisualParams struct {
	AngerMix   float64 `json:"anger_mix"`
	JoyMix     float64 `json:"joy_mix"`
	SadMix     float64 `json:"sad_mix"`
	Speed      float64 `json:"speed"`
	Brightness float64 `json:"brightness"`
}

// Mapper converts score results and liveness inputs into smoothed visual
// parameters. Each Update eases the current state toward the target by the
// lerp rate, so abrupt score changes render as gradual transitions. Safe for
// concurrent use.
type Mapper struct {
	mu       sync.RWMutex
	lerpRate float64
	current  VisualParams
}

// NewMapper creates a mapper easing at rate (0..1] per update.
func NewMapper(lerpRate float64) *Mapper {
	if lerpRate <= 0 || lerpRate > 1 {
		lerpRate = 0.15
	}
	return &Mapper{
		lerpRate: lerpRate,
		current: VisualParams{
			Speed:      baseSpeed,
			Brightness: baseBrightness,
		},
	}
}

// Update folds one score result plus the tracker's liveness inputs into the
// smoothed state and returns the new parameters.
func (m *Mapper) Update(r score.Result, activity float64, textLen int) VisualParams {
	target := targetParams(r, activity, textLen)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = VisualParams{
		AngerMix:   lerp(m.current.AngerMix, target.AngerMix, m.lerpRate),
		JoyMix:     lerp(m.current.JoyMix, target.JoyMix, m.lerpRate),
		SadMix:     lerp(m.current.SadMix, target.SadMix, m.lerpRate),
		Speed:      lerp(m.current.Speed, target.Speed, m.lerpRate),
		Brightness: lerp(m.current.Brightness, target.Brightness, m.lerpRate),
	}
	return m.current
}

// Current returns the last smoothed parameters without updating.
func (m *Mapper) Current() VisualParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// targetParams computes the unsmoothed target for one input frame.
func targetParams(r score.Result, activity float64, textLen int) VisualParams {
	anger, joy, sad := Percentages(r)

	speed := baseSpeed + activity*activitySpeedGain
	if speed > maxSpeed {
		speed = maxSpeed
	}

	brightness := baseBrightness
	if r.TotalWords > 0 {
		density := float64(r.Hits) / float64(r.TotalWords)
		if density > 1 {
			density = 1
		}
		brightness += density * hitBrightnessGain
	}
	if textLen > 0 {
		frac := float64(textLen) / textLenRef
		if frac > 1 {
			frac = 1
		}
		brightness += frac * (maxBrightness - brightness) * 0.5
	}
	if brightness > maxBrightness {
		brightness = maxBrightness
	}

	return VisualParams{
		AngerMix:   anger / 100,
		JoyMix:     joy / 100,
		SadMix:     sad / 100,
		Speed:      speed,
		Brightness: brightness,
	}
}

func lerp(from, to, rate float64) float64 {
	return from + (to-from)*rate
}
