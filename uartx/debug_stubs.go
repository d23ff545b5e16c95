//go:build !uartxdebug

package uartx

type Stats struct{}

type portStats struct{}

func (p *Port) DebugReset()       {}
func (p *Port) DebugStats() Stats { return Stats{} }
