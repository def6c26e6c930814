package screening

import (
	"math"
	"strconv"
)

// Derivation is the label, confidence and count derived from one model score.
type Derivation struct {
	Result        Result
	Confidence    float64
	ParasiteCount int
}

// Derive maps the positive-class score to a stored result. Scores above 0.5
// are positive; 0.5 itself is negative. Inconclusive is never produced.
func Derive(score float32) Derivation {
	s := widen(score)

	var d Derivation
	if s > 0.5 {
		d.Result = ResultPositive
		d.Confidence = s
	} else {
		d.Result = ResultNegative
		d.Confidence = 1 - s
	}
	d.ParasiteCount = ParasiteCount(d.Confidence)
	return d
}

// ParasiteCount is floor(confidence*100) clamped to [0,100]. It is a
// presentation heuristic, not a biological count.
func ParasiteCount(confidence float64) int {
	if math.IsNaN(confidence) || confidence <= 0 {
		return 0
	}
	n := int(math.Floor(confidence*100 + 1e-9))
	if n > 100 {
		return 100
	}
	return n
}

// widen converts through the shortest decimal that round-trips the float32,
// so a model output of 0.96 becomes 0.96 rather than 0.9599999785.
func widen(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}
