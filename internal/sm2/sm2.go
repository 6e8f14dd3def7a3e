// Package sm2 implements the SuperMemo-2 spaced-repetition algorithm as a
// pure computation. It knows nothing about storage, HTTP, or product policy;
// the review controller layers the configurable ease-factor ceiling on top.
package sm2

import (
	"math"
	"time"
)

const (
	// MinEaseFactor is the algorithm floor. SM-2 never lets a card's ease
	// factor drop below 1.3 no matter how often it is failed.
	MinEaseFactor = 1.3

	// DefaultEaseFactor is the starting ease factor for a new card.
	DefaultEaseFactor = 2.5

	// FirstInterval and SecondInterval are the fixed intervals (in days)
	// for the first two consecutive successful reviews.
	FirstInterval  = 1
	SecondInterval = 6

	// RelearnInterval is the interval after a failed review (quality < 3).
	RelearnInterval = 1
)

// Result is the new scheduling state for a card after one review.
type Result struct {
	IntervalDays int
	Repetitions  int
	EaseFactor   float64
}

// Calculate runs one step of SM-2.
//
// quality is the 0-5 self-assessment (0 = total blackout, 5 = perfect
// recall). Values outside that range are clamped into it; callers that want
// to reject bad input must validate before calling. repetitions and
// intervalDays are the card's prior state, easeFactor is expected to already
// sit at or above MinEaseFactor from prior calls.
//
// The returned state is:
//   - quality < 3: repetitions reset to 0, interval reset to RelearnInterval.
//   - quality >= 3: repetitions+1; interval 1 day, then 6 days, then
//     round(previous interval * new ease factor).
//
// The ease factor is adjusted on every review, success or failure, and is
// floored at MinEaseFactor. No upper clamp is applied here; canonical SM-2
// has none.
func Calculate(quality, repetitions, intervalDays int, easeFactor float64) Result {
	if quality < 0 {
		quality = 0
	}
	if quality > 5 {
		quality = 5
	}

	// EF' = EF + (0.1 - (5-q) * (0.08 + (5-q) * 0.02))
	q := float64(quality)
	ease := easeFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ease < MinEaseFactor {
		ease = MinEaseFactor
	}

	if quality < 3 {
		return Result{
			IntervalDays: RelearnInterval,
			Repetitions:  0,
			EaseFactor:   ease,
		}
	}

	reps := repetitions + 1
	var interval int
	switch reps {
	case 1:
		interval = FirstInterval
	case 2:
		interval = SecondInterval
	default:
		interval = int(math.Round(float64(intervalDays) * ease))
	}

	return Result{
		IntervalDays: interval,
		Repetitions:  reps,
		EaseFactor:   ease,
	}
}

// NextReviewDate returns from advanced by intervalDays whole days. Negative
// intervals are treated as zero, so the result is never earlier than from.
func NextReviewDate(intervalDays int, from time.Time) time.Time {
	if intervalDays < 0 {
		intervalDays = 0
	}
	return from.AddDate(0, 0, intervalDays)
}
