//go:build uartxdebug

package uartx

// Called by the receive handler with the Push outcome.
func (p *Port) dbgRx(ok bool) {
	if !ok {
		p.stats.rxDrops.Inc()
		return
	}
	p.stats.rxPuts.Inc()
	// track high-water mark
	used := uint32(p.rx.Used())
	for {
		hw := p.stats.rxMaxUsed.Load()
		if used <= hw || p.stats.rxMaxUsed.CompareAndSwap(hw, used) {
			break
		}
	}
}

// Called by the foreground with the Push outcome.
func (p *Port) dbgTx(ok bool) {
	if ok {
		p.stats.txPuts.Inc()
	} else {
		p.stats.txDrops.Inc()
	}
}
