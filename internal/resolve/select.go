package resolve

import (
	"strings"

	"github.com/vmunix/vidpull/internal/host"
)

// hdRatio is the size fraction below which auto prefers hd over source.
const hdRatio = 0.8

// Select applies the quality policy to a variant list.
// It reports false only when variants is empty.
func Select(variants []host.Variant, q Quality) (host.Variant, bool) {
	if len(variants) == 0 {
		return host.Variant{}, false
	}

	source, hasSource := find(variants, "source")
	hd, hasHD := find(variants, "hd")

	switch q {
	case QualitySource:
		if hasSource {
			return source, true
		}
	case QualityHD:
		if hasHD {
			return hd, true
		}
		if hasSource {
			return source, true
		}
	case QualitySD:
		if sd, ok := find(variants, "sd"); ok {
			return sd, true
		}
		if hasHD {
			return hd, true
		}
	default:
		switch {
		case hasHD && hasSource:
			if float64(hd.Size) < hdRatio*float64(source.Size) {
				return hd, true
			}
			return source, true
		case hasHD:
			return hd, true
		case hasSource:
			return source, true
		}
	}
	return largest(variants), true
}

func find(variants []host.Variant, label string) (host.Variant, bool) {
	for _, v := range variants {
		if strings.EqualFold(v.Quality, label) {
			return v, true
		}
	}
	return host.Variant{}, false
}

// largest returns the biggest variant; ties keep the first.
func largest(variants []host.Variant) host.Variant {
	best := variants[0]
	for _, v := range variants[1:] {
		if v.Size > best.Size {
			best = v
		}
	}
	return best
}
