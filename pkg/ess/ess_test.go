package ess

import (
	"log/slog"

	"github.com/raterudder/energymatrix/pkg/log"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}
