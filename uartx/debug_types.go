//go:build uartxdebug

package uartx

import "go.uber.org/atomic"

// Stats holds ring counters since the last reset.
type Stats struct {
	RxPuts    uint32 // bytes stored by the receive handler
	RxDrops   uint32 // bytes dropped because the RX ring was full
	RxMaxUsed uint32 // high-water mark of RX ring occupancy
	TxPuts    uint32 // bytes queued by the foreground
	TxDrops   uint32 // bytes dropped by PutByte on a full TX ring
}

type portStats struct {
	rxPuts    atomic.Uint32
	rxDrops   atomic.Uint32
	rxMaxUsed atomic.Uint32
	txPuts    atomic.Uint32
	txDrops   atomic.Uint32
}

// DebugReset zeroes the counters.
func (p *Port) DebugReset() {
	p.stats.rxPuts.Store(0)
	p.stats.rxDrops.Store(0)
	p.stats.rxMaxUsed.Store(0)
	p.stats.txPuts.Store(0)
	p.stats.txDrops.Store(0)
}

// DebugStats returns a copy of the counters.
func (p *Port) DebugStats() Stats {
	return Stats{
		RxPuts:    p.stats.rxPuts.Load(),
		RxDrops:   p.stats.rxDrops.Load(),
		RxMaxUsed: p.stats.rxMaxUsed.Load(),
		TxPuts:    p.stats.txPuts.Load(),
		TxDrops:   p.stats.txDrops.Load(),
	}
}
