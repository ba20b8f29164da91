package utility

import (
	"errors"
	"fmt"
)

// Plan converts a raw market price per MWh into the end-customer price per kWh
// of a dynamic tariff: raw/1000*Markup + Surcharge.
type Plan struct {
	// Markup multiplies the market price, e.g. to add VAT.
	Markup float64 `json:"markup"`
	// Surcharge is added per kWh for grid fees, levies and the supplier margin.
	Surcharge float64 `json:"surcharge"`
}

// DefaultPlan is Green Planet Energy Ökostrom flex (since 01/2025).
var DefaultPlan = Plan{
	Markup:    1.19,
	Surcharge: 0.1978,
}

// Apply converts a raw price.
func (p Plan) Apply(raw float64) float64 {
	return raw/1000*p.Markup + p.Surcharge
}

// Validate ensures the plan is usable.
func (p Plan) Validate() error {
	if p.Markup <= 0 {
		return errors.New("markup must be positive")
	}
	if p.Surcharge < 0 {
		return fmt.Errorf("surcharge must not be negative: %v", p.Surcharge)
	}
	return nil
}
