package display

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/raterudder/energymatrix/pkg/log"
	"github.com/stretchr/testify/assert"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

func TestFormatWatt(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 W"},
		{1, "1 W"},
		{999, "999 W"},
		{999.4, "999 W"},
		{999.5, "1.0 kW"},
		{1000, "1.0 kW"},
		{1049, "1.0 kW"},
		{1250, "1.2 kW"},
		{1500, "1.5 kW"},
		{2000, "2.0 kW"},
		{9949, "9.9 kW"},
		{9999, "10.0 kW"},
		{9999.5, "10 kW"},
		{10000, "10 kW"},
		{10499, "10 kW"},
		{10500, "10 kW"},
		{15600, "16 kW"},
		{-250, "-250 W"},
		{-2000, "-2.0 kW"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatWatt(tt.in), "FormatWatt(%v)", tt.in)
	}
}

func TestFormatWattMonotonic(t *testing.T) {
	// the displayed magnitude never decreases as the input grows
	parse := func(s string) float64 {
		var v float64
		var unit string
		_, err := fmt.Sscan(s, &v, &unit)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", s, err)
		}
		if unit == "kW" {
			return v * 1000
		}
		return v
	}
	prev := -1.0
	for w := 0.0; w <= 20000; w += 0.5 {
		got := parse(FormatWatt(w))
		if got < prev {
			t.Fatalf("FormatWatt(%v) = %v is below previous %v", w, got, prev)
		}
		prev = got
	}
}
