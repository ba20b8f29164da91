package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/raterudder/energymatrix/pkg/display"
	"github.com/raterudder/energymatrix/pkg/types"
)

// status is the snapshot of the last cycles served by /api/status.
type status struct {
	LastSample  *types.Sample   `json:"lastSample,omitempty"`
	LastBlocks  []display.Block `json:"lastBlocks,omitempty"`
	LastSuccess time.Time       `json:"lastSuccess,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	LastErrorAt time.Time       `json:"lastErrorAt,omitempty"`
	SendError   string          `json:"sendError,omitempty"`
	Cycles      int             `json:"cycles"`
	Failures    int             `json:"failures"`
}

func (s *Server) recordSuccess(sample types.Sample, blocks []display.Block, sendErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Cycles++
	s.status.LastSample = &sample
	s.status.LastBlocks = blocks
	s.status.LastSuccess = sample.Timestamp
	s.status.SendError = ""
	if sendErr != nil {
		s.status.SendError = sendErr.Error()
	}
}

func (s *Server) recordFailure(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Cycles++
	s.status.Failures++
	s.status.LastError = err.Error()
	s.status.LastErrorAt = at
}

func (s *Server) snapshot() status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot()
	if st.Cycles == 0 {
		writeJSONError(w, "no cycle has run yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		panic(http.ErrAbortHandler)
	}
}
