package codec

import (
	"fmt"
	"strconv"
	"strings"

	"splice/internal/faults"
)

// ParseRational accepts "num/den" or a bare integer ("25" is 25/1).
// A zero denominator is allowed: AAF uses "0/1" and "0/0" edit rates for
// slots that carry no timing.
func ParseRational(s string) (Rational, error) {
	trimmed := strings.TrimSpace(s)
	numText, denText, hasDen := strings.Cut(trimmed, "/")
	num, err := strconv.ParseInt(strings.TrimSpace(numText), 10, 32)
	if err != nil {
		return Rational{}, faults.Wrap(faults.ErrTypeMismatch, "codec", "parse rational", fmt.Sprintf("%q", s), err)
	}
	den := int64(1)
	if hasDen {
		den, err = strconv.ParseInt(strings.TrimSpace(denText), 10, 32)
		if err != nil {
			return Rational{}, faults.Wrap(faults.ErrTypeMismatch, "codec", "parse rational", fmt.Sprintf("%q", s), err)
		}
	}
	return Rational{Num: int32(num), Den: int32(den)}, nil
}
