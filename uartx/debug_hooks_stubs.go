//go:build !uartxdebug

package uartx

func (p *Port) dbgRx(bool) {}
func (p *Port) dbgTx(bool) {}
