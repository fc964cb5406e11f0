package engine

import (
	"github.com/rs/zerolog/log"
)

// CutStatistics counts how often each pruning mechanism fired. Every searcher
// owns one, so the counters are plain integers.
type CutStatistics struct {
	TTCutoffs        uint64
	NullMoveCutoffs  uint64
	BetaCutoffs      uint64
	QStandPatCutoffs uint64
	QDeltaPrunes     uint64
	QBetaCutoffs     uint64
}

func (c *CutStatistics) log(nodes uint64) {
	log.Debug().
		Uint64("nodes", nodes).
		Uint64("tt-cutoffs", c.TTCutoffs).
		Uint64("null-move-cutoffs", c.NullMoveCutoffs).
		Uint64("beta-cutoffs", c.BetaCutoffs).
		Uint64("q-standpat-cutoffs", c.QStandPatCutoffs).
		Uint64("q-delta-prunes", c.QDeltaPrunes).
		Uint64("q-beta-cutoffs", c.QBetaCutoffs).
		Msg("cut-statistics")
}
