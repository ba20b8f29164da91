package display

import (
	"math"
	"strconv"
)

// FormatWatt renders a power value for the matrix. The value is rounded to a
// whole watt (half away from zero) before the unit is chosen, so 999.5 W is
// shown as "1.0 kW" rather than "1000 W". Kilowatts are then printed by
// strconv, which rounds exact halves to even (1250 W is "1.2 kW").
func FormatWatt(w float64) string {
	w = math.Round(w)
	abs := math.Abs(w)
	switch {
	case abs >= 10000:
		return strconv.FormatFloat(w/1000, 'f', 0, 64) + " kW"
	case abs >= 1000:
		return strconv.FormatFloat(w/1000, 'f', 1, 64) + " kW"
	default:
		return strconv.FormatInt(int64(w), 10) + " W"
	}
}
