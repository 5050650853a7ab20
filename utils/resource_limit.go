package utils

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// RegenerationSeconds is how long an empty manabar takes to refill. Voting
// power and resource credits share the same five day window.
const RegenerationSeconds = 5 * 24 * 60 * 60

// VestsToMana is the fixed factor between one VESTS and one unit of voting mana.
const VestsToMana = 1000000

// Manabar is a regenerating budget sampled at LastUpdate.
type Manabar struct {
	CurrentMana int64
	MaxMana     int64
	LastUpdate  time.Time
}

// CurrentAt regenerates the bar linearly up to now, capped at MaxMana.
func (m Manabar) CurrentAt(now time.Time) int64 {
	if m.MaxMana <= 0 {
		return 0
	}
	current := m.CurrentMana
	if current < 0 {
		current = 0
	}
	elapsed := now.Sub(m.LastUpdate).Seconds()
	if elapsed > 0 {
		regen := float64(m.MaxMana) * elapsed / RegenerationSeconds
		next := float64(current) + regen
		if next >= float64(m.MaxMana) {
			return m.MaxMana
		}
		current = int64(next)
	}
	if current > m.MaxMana {
		current = m.MaxMana
	}
	return current
}

// PercentageAt is CurrentAt expressed as 0..100.
func (m Manabar) PercentageAt(now time.Time) float64 {
	if m.MaxMana <= 0 {
		return 0
	}
	pct := float64(m.CurrentAt(now)) * 100 / float64(m.MaxMana)
	return math.Max(0, math.Min(100, pct))
}

// ParseAsset reads the numeric part of an asset string such as
// "1234.567890 VESTS".
func ParseAsset(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, errors.Errorf("empty asset %q", s)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, errors.Wrapf(err, "asset %q", s)
	}
	return v, nil
}

// EffectiveVests is own minus delegated plus received vesting shares.
func EffectiveVests(own, delegated, received string) (float64, error) {
	o, err := ParseAsset(own)
	if err != nil {
		return 0, err
	}
	d, err := ParseAsset(delegated)
	if err != nil {
		d = 0
	}
	r, err := ParseAsset(received)
	if err != nil {
		r = 0
	}
	return o - d + r, nil
}
