// Package astro implements the local astronomical calculator provider.
// Unlike the networked providers it costs nothing to call and carries no
// request budget, but its results are still published through the response
// cache so callers use one access path for every provider.
package astro

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/maypok86/otter/v2"
)

// synodicMonth is the mean length of a lunation in days.
const synodicMonth = 29.530588853

// newMoonEpoch is a reference new moon: 2000-01-06 18:14 UTC.
var newMoonEpoch = time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

// Result describes the moon's state at a point in time.
type Result struct {
	Phase        string  `json:"phase"`
	Illumination float64 `json:"illumination"` // 0.0 (new) to 1.0 (full)
	AgeDays      float64 `json:"age_days"`     // days since the last new moon
	Waxing       bool    `json:"waxing"`
}

// Calculator computes moon phases, memoizing per-hour results. The phase
// moves ~0.03% of a lunation per hour, so hourly resolution is plenty.
type Calculator struct {
	memo *otter.Cache[int64, Result]
}

// New creates a Calculator with a bounded memoization cache.
func New() (*Calculator, error) {
	memo, err := otter.New[int64, Result](&otter.Options[int64, Result]{
		MaximumSize: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("create astro memo cache: %w", err)
	}
	return &Calculator{memo: memo}, nil
}

// MoonPhase returns the moon's state at t, truncated to the hour.
func (c *Calculator) MoonPhase(t time.Time) Result {
	key := memoKey(t)
	if r, ok := c.memo.GetIfPresent(key); ok {
		return r
	}
	r := compute(time.Unix(key, 0).UTC())
	c.memo.Set(key, r)
	return r
}

// Payload returns the moon state as a JSON document in the same shape the
// networked providers produce, ready for the response cache.
func (c *Calculator) Payload(t time.Time) []byte {
	data, _ := json.Marshal(c.MoonPhase(t))
	return data
}

func memoKey(t time.Time) int64 {
	return t.UTC().Truncate(time.Hour).Unix()
}

func compute(t time.Time) Result {
	days := t.Sub(newMoonEpoch).Hours() / 24
	age := math.Mod(days, synodicMonth)
	if age < 0 {
		age += synodicMonth
	}
	frac := age / synodicMonth
	return Result{
		Phase:        phaseName(frac),
		Illumination: (1 - math.Cos(2*math.Pi*frac)) / 2,
		AgeDays:      age,
		Waxing:       frac < 0.5,
	}
}

// phaseName buckets the lunation fraction into the eight common phases,
// with the four principal phases centered on their exact instants.
func phaseName(frac float64) string {
	switch {
	case frac < 0.0625 || frac >= 0.9375:
		return "New Moon"
	case frac < 0.1875:
		return "Waxing Crescent"
	case frac < 0.3125:
		return "First Quarter"
	case frac < 0.4375:
		return "Waxing Gibbous"
	case frac < 0.5625:
		return "Full Moon"
	case frac < 0.6875:
		return "Waning Gibbous"
	case frac < 0.8125:
		return "Last Quarter"
	default:
		return "Waning Crescent"
	}
}
