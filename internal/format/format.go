// Package format renders Quantity values for humans: suffix notation,
// optional scientific notation, rates, percentages and durations.
// Formatting is lossy by design; the stored Quantity never is.
package format

import (
	"fmt"
	"strings"

	"github.com/scottholdren/idle-clicker-game/internal/num"
)

// suffixes maps each power-of-1000 step at or above 1e3 to its display
// suffix, in ascending order up to 1e99.
var suffixes = []struct {
	threshold num.Quantity
	suffix    string
}{
	{pow10(3), "K"},
	{pow10(6), "M"},
	{pow10(9), "B"},
	{pow10(12), "T"},
	{pow10(15), "Qa"},
	{pow10(18), "Qi"},
	{pow10(21), "Sx"},
	{pow10(24), "Sp"},
	{pow10(27), "Oc"},
	{pow10(30), "No"},
	{pow10(33), "Dc"},
	{pow10(36), "UDc"},
	{pow10(39), "DDc"},
	{pow10(42), "TDc"},
	{pow10(45), "QaDc"},
	{pow10(48), "QiDc"},
	{pow10(51), "SxDc"},
	{pow10(54), "SpDc"},
	{pow10(57), "OcDc"},
	{pow10(60), "NoDc"},
	{pow10(63), "Vg"},
	{pow10(66), "UVg"},
	{pow10(69), "DVg"},
	{pow10(72), "TVg"},
	{pow10(75), "QaVg"},
	{pow10(78), "QiVg"},
	{pow10(81), "SxVg"},
	{pow10(84), "SpVg"},
	{pow10(87), "OcVg"},
	{pow10(90), "NoVg"},
	{pow10(93), "Tg"},
	{pow10(96), "UTg"},
	{pow10(99), "DTg"},
}

func pow10(exp int64) num.Quantity {
	return num.FromInt(10).Pow(num.FromInt(exp))
}

// DefaultPrecision is the fractional digits shown on suffixed mantissas.
const DefaultPrecision = 2

// Formatter renders quantities. The zero value uses suffix notation only;
// set ScientificThreshold to a positive quantity to switch large values to
// scientific notation.
type Formatter struct {
	// Scientific enables scientific notation for values at or above
	// ScientificThreshold.
	Scientific          bool
	ScientificThreshold num.Quantity
}

// Format renders v with the default precision.
func (f Formatter) Format(v num.Quantity) string {
	return f.FormatPrec(v, DefaultPrecision)
}

// FormatPrec renders v with the given number of fractional digits on the
// mantissa. Zero renders as "0"; negatives as "-" plus the absolute value.
func (f Formatter) FormatPrec(v num.Quantity, precision int32) string {
	if v.IsZero() {
		return "0"
	}
	if v.IsNegative() {
		return "-" + f.FormatPrec(v.Abs(), precision)
	}
	if f.Scientific && f.ScientificThreshold.IsPositive() && v.GreaterThanOrEqual(f.ScientificThreshold) {
		return scientific(v, precision)
	}
	if v.LessThan(pow10(3)) {
		return trimFixed(v, precision)
	}

	// Largest suffix threshold <= v.
	idx := 0
	for i := len(suffixes) - 1; i >= 0; i-- {
		if v.GreaterThanOrEqual(suffixes[i].threshold) {
			idx = i
			break
		}
	}
	mantissa := v.Div(suffixes[idx].threshold).Round(precision)

	// Rounding can carry the mantissa to exactly 1000 (999.996 at two
	// places). Re-dispatch through the suffix path rather than print "1000K".
	// Past the last suffix there is nothing left to carry into, so values
	// beyond the table render scientific regardless of the Scientific flag.
	if mantissa.GreaterThanOrEqual(pow10(3)) {
		if idx == len(suffixes)-1 {
			return scientific(v, precision)
		}
		return f.FormatPrec(mantissa.Mul(suffixes[idx].threshold), precision)
	}
	return trimFixed(mantissa, precision) + suffixes[idx].suffix
}

// FormatRate renders a per-second production rate.
func (f Formatter) FormatRate(v num.Quantity) string {
	return f.Format(v) + "/s"
}

// FormatPercentage renders v as a percentage rounded half-up to places.
func FormatPercentage(v num.Quantity, places int32) string {
	return trimFixed(v.Mul(num.FromInt(100)).Round(places), places) + "%"
}

// FormatTime renders a duration in seconds as its two largest non-zero
// units out of days, hours, minutes and seconds.
func FormatTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := seconds / 86400
	h := (seconds % 86400) / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	switch {
	case d > 0:
		if h > 0 {
			return fmt.Sprintf("%dd %dh", d, h)
		}
		return fmt.Sprintf("%dd", d)
	case h > 0:
		if m > 0 {
			return fmt.Sprintf("%dh %dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	case m > 0:
		if s > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// scientific renders "<mantissa>e<exponent>" with no plus sign or leading
// zeros in the exponent.
func scientific(v num.Quantity, precision int32) string {
	s := v.String()
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	digits := strings.TrimLeft(intPart+fracPart, "0")
	exp := len(intPart) - 1
	if intPart == "0" || strings.Trim(intPart, "0") == "" {
		// Value below 1: exponent is negative.
		lead := len(fracPart) - len(strings.TrimLeft(fracPart, "0"))
		exp = -(lead + 1)
	}
	if digits == "" {
		return "0"
	}

	// Round half-up to precision+1 significant digits. A carry past the
	// leading digit shifts the exponent (9.99e20 at one place is 1e21).
	keep := int(precision) + 1
	if len(digits) > keep {
		carry := digits[keep] >= '5'
		b := []byte(digits[:keep])
		for i := len(b) - 1; carry && i >= 0; i-- {
			if b[i] == '9' {
				b[i] = '0'
				continue
			}
			b[i]++
			carry = false
		}
		if carry {
			b = append([]byte{'1'}, b...)[:keep]
			exp++
		}
		digits = string(b)
	}
	mantissa := digits[:1]
	rest := strings.TrimRight(digits[1:], "0")
	if rest != "" {
		mantissa += "." + rest
	}
	if neg {
		mantissa = "-" + mantissa
	}
	return fmt.Sprintf("%se%d", mantissa, exp)
}

// trimFixed renders v with up to `places` fractional digits, stripping
// trailing zeros and a dangling decimal point.
func trimFixed(v num.Quantity, places int32) string {
	s := v.Round(places).String()
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}
