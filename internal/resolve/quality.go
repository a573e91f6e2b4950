package resolve

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
)

// Quality is a requested rendition preference.
type Quality string

const (
	QualitySource Quality = "source"
	QualityHD     Quality = "hd"
	QualitySD     Quality = "sd"
	QualityAuto   Quality = "auto"
)

// Qualities lists every accepted quality in display order.
var Qualities = []Quality{QualitySource, QualityHD, QualitySD, QualityAuto}

// suggestThreshold is the minimum Jaro-Winkler score for a "did you mean" hint.
const suggestThreshold = 0.7

// ParseQuality parses a quality name case-insensitively.
// An empty string yields QualityAuto.
func ParseQuality(s string) (Quality, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return QualityAuto, nil
	}
	for _, q := range Qualities {
		if string(q) == name {
			return q, nil
		}
	}
	if hint := suggest(name); hint != "" {
		return "", fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownQuality, s, hint)
	}
	return "", fmt.Errorf("%w %q (valid: source, hd, sd, auto)", ErrUnknownQuality, s)
}

// suggest returns the closest known quality name, or "" if nothing is close.
func suggest(name string) string {
	var best string
	var bestScore float32
	for _, q := range Qualities {
		score := edlib.JaroWinklerSimilarity(name, string(q))
		if score > bestScore {
			best, bestScore = string(q), score
		}
	}
	if bestScore < suggestThreshold {
		return ""
	}
	return best
}

// String implements fmt.Stringer.
func (q Quality) String() string {
	return string(q)
}
