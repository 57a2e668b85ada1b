package signal

import (
	"math"
	"testing"
	"time"

	"github.com/moodlens/moodlens/pkg/score"
)

func TestPercentages(t *testing.T) {
	cases := []struct {
		name    string
		result  score.Result
		anger   float64
		joy     float64
		sad     float64
		sumZero bool
	}{
		{
			name:   "even split",
			result: score.Result{Anger: 1, Joy: 1, Sad: 1},
			anger:  100.0 / 3, joy: 100.0 / 3, sad: 100.0 / 3,
		},
		{
			name:   "single channel",
			result: score.Result{Joy: 2.5},
			joy:    100,
		},
		{
			name:   "negative clamped before normalizing",
			result: score.Result{Anger: 1, Joy: -0.8, Sad: 1},
			anger:  50, sad: 50,
		},
		{
			name:    "all zero",
			result:  score.Result{},
			sumZero: true,
		},
		{
			name:    "all negative",
			result:  score.Result{Anger: -1, Joy: -2, Sad: -0.5},
			sumZero: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, j, s := Percentages(tc.result)
			if tc.sumZero {
				if a != 0 || j != 0 || s != 0 {
					t.Errorf("got (%v, %v, %v), want all zero", a, j, s)
				}
				return
			}
			if math.Abs(a-tc.anger) > 1e-9 || math.Abs(j-tc.joy) > 1e-9 || math.Abs(s-tc.sad) > 1e-9 {
				t.Errorf("got (%v, %v, %v), want (%v, %v, %v)", a, j, s, tc.anger, tc.joy, tc.sad)
			}
			if math.Abs(a+j+s-100) > 1e-9 {
				t.Errorf("percentages sum to %v, want 100", a+j+s)
			}
		})
	}
}

func TestMapperSmoothing(t *testing.T) {
	m := NewMapper(0.5)
	r := score.Result{Joy: 1, Hits: 1, TotalWords: 2}

	first := m.Update(r, 0, 0)
	if first.JoyMix <= 0 || first.JoyMix >= 1 {
		t.Errorf("first JoyMix = %v, want strictly between 0 and the 1.0 target", first.JoyMix)
	}

	// Repeated updates converge toward the target without overshooting.
	prev := first.JoyMix
	for i := 0; i < 50; i++ {
		cur := m.Update(r, 0, 0).JoyMix
		if cur < prev-1e-9 || cur > 1+1e-9 {
			t.Fatalf("update %d: JoyMix %v regressed from %v or overshot", i, cur, prev)
		}
		prev = cur
	}
	if math.Abs(prev-1.0) > 0.01 {
		t.Errorf("JoyMix converged to %v, want ~1.0", prev)
	}
}

func TestMapperActivityDrivesSpeed(t *testing.T) {
	m := NewMapper(1.0)
	idle := m.Update(score.Result{}, 0, 0)
	busy := m.Update(score.Result{}, 5, 0)
	if busy.Speed <= idle.Speed {
		t.Errorf("speed with activity %v not above idle %v", busy.Speed, idle.Speed)
	}
}

func TestMapperZeroHitsStaysAlive(t *testing.T) {
	// No emotional hits at all: brightness and speed stay at their base
	// floors, not zero.
	m := NewMapper(1.0)
	got := m.Update(score.Result{TotalWords: 4}, 0, 0)
	if got.Brightness <= 0 || got.Speed <= 0 {
		t.Errorf("params collapsed to zero with no hits: %+v", got)
	}
}

func TestTrackerBumpAndDecay(t *testing.T) {
	tr := NewTracker(10*time.Millisecond, 0.5)
	tr.Start()
	defer tr.Stop()

	for i := 0; i < 4; i++ {
		tr.Bump()
	}
	tr.SetTextLength(12)

	activity, textLen := tr.Snapshot()
	if activity <= 0 {
		t.Fatalf("activity = %v after bumps, want > 0", activity)
	}
	if textLen != 12 {
		t.Errorf("textLen = %d, want 12", textLen)
	}

	deadline := time.After(2 * time.Second)
	for {
		cur, _ := tr.Snapshot()
		if cur < activity {
			break
		}
		select {
		case <-deadline:
			t.Fatal("activity did not decay within 2s")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestTrackerActivityCap(t *testing.T) {
	tr := NewTracker(time.Hour, 0.5)
	for i := 0; i < 100; i++ {
		tr.Bump()
	}
	activity, _ := tr.Snapshot()
	if activity > maxActivity {
		t.Errorf("activity = %v, want capped at %v", activity, maxActivity)
	}
}

func TestTrackerNegativeLength(t *testing.T) {
	tr := NewTracker(time.Hour, 0.5)
	tr.SetTextLength(-5)
	if _, n := tr.Snapshot(); n != 0 {
		t.Errorf("textLen = %d, want 0", n)
	}
}
