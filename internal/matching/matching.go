// Package matching computes roommate compatibility warnings.  Warnings
// never block an assignment; a non-empty result only forces the consent
// handshake instead of a unilateral commit.
package matching

import (
	"fmt"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
)

// Code identifies a rule that fired.  Codes are the same whichever side of
// the pairing asks.
type Code string

const (
	CodeSnoring  Code = "SNORING"
	CodeSmoking  Code = "SMOKING"
	CodeSchedule Code = "SCHEDULE"
	CodeAgeGap   Code = "AGE_GAP"
)

// DefaultAgeGapYears is the birth-year difference that triggers CodeAgeGap.
const DefaultAgeGapYears = 10

// Evaluator applies the rules in a fixed order: snoring, smoking, sleep
// schedule, age gap.
type Evaluator struct {
	AgeGapYears int
}

// New returns an Evaluator; ageGap <= 0 selects DefaultAgeGapYears.
func New(ageGap int) Evaluator {
	if ageGap <= 0 {
		ageGap = DefaultAgeGapYears
	}
	return Evaluator{AgeGapYears: ageGap}
}

// Default is the evaluator with default thresholds.
var Default = New(DefaultAgeGapYears)

// Evaluate uses Default.
func Evaluate(viewer, other model.Profile) []string { return Default.Evaluate(viewer, other) }

// Codes reports which rules fire for a pairing.  Codes(a, b) equals
// Codes(b, a).
func (e Evaluator) Codes(a, b model.Profile) []Code {
	var out []Code
	for _, f := range e.findings(a, b) {
		out = append(out, f.code)
	}
	return out
}

// Evaluate returns human-readable warnings addressed to viewer about
// sharing a room with other.  An empty result is a no-friction pairing.
func (e Evaluator) Evaluate(viewer, other model.Profile) []string {
	fs := e.findings(viewer, other)
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.message)
	}
	return out
}

type finding struct {
	code    Code
	message string
}

func (e Evaluator) findings(v, o model.Profile) []finding {
	var out []finding

	switch {
	case v.LightSleeper && o.Snores && v.Snores && o.LightSleeper:
		out = append(out, finding{CodeSnoring, "You both snore and are light sleepers"})
	case v.LightSleeper && o.Snores:
		out = append(out, finding{CodeSnoring, "They snore and you are a light sleeper"})
	case v.Snores && o.LightSleeper:
		out = append(out, finding{CodeSnoring, "You snore and they are a light sleeper"})
	}

	if v.Smoker != o.Smoker {
		if v.Smoker {
			out = append(out, finding{CodeSmoking, "You smoke and they do not"})
		} else {
			out = append(out, finding{CodeSmoking, "They smoke and you do not"})
		}
	}

	if v.SleepSchedule != "" && o.SleepSchedule != "" && v.SleepSchedule != o.SleepSchedule {
		out = append(out, finding{CodeSchedule,
			fmt.Sprintf("You keep %s hours and they keep %s hours", schedule(v.SleepSchedule), schedule(o.SleepSchedule))})
	}

	if v.BirthYear > 0 && o.BirthYear > 0 {
		gap := v.BirthYear - o.BirthYear
		if gap < 0 {
			gap = -gap
		}
		if gap >= e.AgeGapYears {
			out = append(out, finding{CodeAgeGap, fmt.Sprintf("There is a %d-year age gap between you", gap)})
		}
	}
	return out
}

func schedule(s model.SleepSchedule) string {
	switch s {
	case model.ScheduleEarly:
		return "early"
	case model.ScheduleLate:
		return "late"
	}
	return string(s)
}
