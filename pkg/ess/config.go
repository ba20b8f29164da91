package ess

import (
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
)

// Configured sets up the ESS system provider based on flags.
func Configured() System {
	provider := lflag.String("ess-provider", "victron", "ESS provider to use (available: victron, mock)")

	var p struct{ System }

	v := configuredVictron()

	lflag.Do(func() {
		switch *provider {
		case "victron":
			if err := v.Validate(); err != nil {
				panic(fmt.Sprintf("victron validation failed: %v", err))
			}
			p.System = v
		case "mock":
			p.System = newMock(time.Now)
		default:
			panic(fmt.Sprintf("unknown ess provider: %s", *provider))
		}
	})

	return &p
}
