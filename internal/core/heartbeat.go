package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Heartbeat periodically shouts an inform with the local position while
// the session is live. The protocol itself never retries anything; this
// is the wrapping application's drift-correction driver, and only a
// leader's informs make it past the send gate.
type Heartbeat struct {
	coord  *Coordinator
	period time.Duration
}

func NewHeartbeat(coord *Coordinator, period time.Duration) *Heartbeat {
	return &Heartbeat{coord: coord, period: period}
}

// Run ticks until ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()
	log.Debug().Str("module", "core.heartbeat").Dur("period", h.period).Msg("heartbeat started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "core.heartbeat").Msg("heartbeat stopped")
			return
		case <-ticker.C:
			h.coord.Inform()
		}
	}
}
