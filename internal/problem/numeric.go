package problem

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseFloatPrefix parses the longest leading decimal number of s, so
// "35.5%" yields 35.5. ok is false when s does not start with a number.
func ParseFloatPrefix(s string) (float64, bool) {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Badge is the display form of a difficulty value.
type Badge struct {
	Ratio float64 `json:"ratio"` // 0..1
	Hue   int     `json:"hue"`   // 0 (red) .. 120 (green)
	Label string  `json:"label"` // e.g. "35.0%"
}

// DifficultyBadge normalizes a raw difficulty. Values above 1 are taken as
// percentages; the result is clamped to [0,1].
func DifficultyBadge(raw string) Badge {
	v, _ := ParseFloatPrefix(raw)
	if v > 1 {
		v /= 100
	}
	v = math.Max(0, math.Min(1, v))
	return Badge{
		Ratio: v,
		Hue:   int(math.Floor(v*120 + 0.5)),
		Label: fmt.Sprintf("%.1f%%", v*100),
	}
}
