//go:build rp2040 || rp2350

package uartx

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
)

// pl011 is one RP2040/RP2350 UART. The ISR is the steady-state writer to
// UARTDR; the foreground only touches the data register through the masked
// kick in setIRQ.
type pl011 struct {
	port *Port
	bus  *rp.UART0_Type
	irq  interrupt.Interrupt

	tx, rx machine.Pin
	reset  uint32
	up     bool // out of reset; registers are accessible
}

var (
	_uart0 = pl011{bus: rp.UART0, tx: machine.GP0, rx: machine.GP1, reset: rp.RESETS_RESET_UART0}
	_uart1 = pl011{bus: rp.UART1, tx: machine.GP4, rx: machine.GP5, reset: rp.RESETS_RESET_UART1}

	hardware = NewPorts(&_uart0, &_uart1)
)

func init() {
	_uart0.irq = interrupt.New(rp.IRQ_UART0_IRQ, _uart0.handleInterrupt)
	_uart1.irq = interrupt.New(rp.IRQ_UART1_IRQ, _uart1.handleInterrupt)
}

// Hardware returns the registry bound to UART0 (GP0/GP1) and UART1 (GP4/GP5).
func Hardware() *Ports { return hardware }

func (u *pl011) attach(p *Port) { u.port = p }

// configure resets the peripheral, muxes the pins, sets 8N1 with FIFOs and
// leaves RXIM/RTIM unmasked and TXIM masked.
func (u *pl011) configure() {
	rp.RESETS.RESET.SetBits(u.reset)
	rp.RESETS.RESET.ClearBits(u.reset)
	for !rp.RESETS.RESET_DONE.HasBits(u.reset) {
	}

	u.up = true

	u.tx.Configure(machine.PinConfig{Mode: machine.PinUART})
	u.rx.Configure(machine.PinConfig{Mode: machine.PinUART})

	// 8 data bits, 1 stop bit, no parity, FIFOs on. Full LCR_H write.
	u.bus.UARTLCR_H.Set(3<<rp.UART0_UARTLCR_H_WLEN_Pos | rp.UART0_UARTLCR_H_FEN)

	// Clear pending IRQs, purge RX FIFO and sticky errors.
	u.bus.UARTICR.Set(0x7FF)
	for !u.bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE) {
		_ = u.bus.UARTDR.Get()
	}
	u.bus.UARTRSR.Set(0)

	u.bus.UARTCR.Set(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)

	u.irq.SetPriority(0x80)
	u.irq.Enable()
	u.bus.UARTIFLS.Set(0)
	u.bus.UARTIMSC.Set(rp.UART0_UARTIMSC_RXIM | rp.UART0_UARTIMSC_RTIM)
}

// setBaudRate programs the integer and fractional divisors and performs the
// LCR_H write PL011 needs to latch them.
func (u *pl011) setBaudRate(r BaudRate) {
	if !u.up {
		return
	}
	div := 8 * machine.CPUFrequency() / r.BitsPerSecond()
	ibrd := div >> 7
	var fbrd uint32
	switch {
	case ibrd == 0:
		ibrd, fbrd = 1, 0
	case ibrd >= 65535:
		ibrd, fbrd = 65535, 0
	default:
		fbrd = ((div & 0x7f) + 1) / 2
	}
	u.bus.UARTIBRD.Set(ibrd)
	u.bus.UARTFBRD.Set(fbrd)
	u.bus.UARTLCR_H.Set(u.bus.UARTLCR_H.Get())
}

func (u *pl011) mask(src irqSource) uint32 {
	if src == irqTransmit {
		return rp.UART0_UARTIMSC_TXIM
	}
	return rp.UART0_UARTIMSC_RXIM | rp.UART0_UARTIMSC_RTIM
}

// setIRQ masks or unmasks a source. PL011 raises TXMIS on a FIFO level
// transition only, so unmasking TXIM over an idle, empty FIFO would never
// fire; in that case the FIFO is seeded here with the UART IRQ held off.
func (u *pl011) setIRQ(src irqSource, on bool) {
	if !u.up {
		return
	}
	m := u.mask(src)
	if !on {
		u.bus.UARTIMSC.ClearBits(m)
		return
	}
	u.bus.UARTIMSC.SetBits(m)
	if src == irqTransmit && u.bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFE) &&
		!u.bus.UARTMIS.HasBits(rp.UART0_UARTMIS_TXMIS) {
		state := interrupt.Disable()
		u.refill()
		interrupt.Restore(state)
	}
}

func (u *pl011) irqEnabled(src irqSource) bool {
	if !u.up {
		return false
	}
	return u.bus.UARTIMSC.HasBits(u.mask(src))
}

// refill moves bytes from the TX ring into the FIFO until it is full or the
// ring drains, masking TXIM on drain.
func (u *pl011) refill() {
	if u.port == nil {
		u.bus.UARTIMSC.ClearBits(rp.UART0_UARTIMSC_TXIM)
		return
	}
	for !u.bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFF) {
		b, ok, drained := u.port.transmitReady()
		if ok {
			u.bus.UARTDR.Set(uint32(b))
		}
		if drained {
			u.bus.UARTIMSC.ClearBits(rp.UART0_UARTIMSC_TXIM)
			return
		}
	}
}

// handleInterrupt services RX level/timeout and TX level interrupts.
// RX: drain DR until RXFE, dropping errored bytes, then clear RXIC/RTIC and
// the sticky errors. TX: refill the FIFO and clear TXIC.
func (u *pl011) handleInterrupt(interrupt.Interrupt) {
	mis := u.bus.UARTMIS.Get()

	if mis&(rp.UART0_UARTMIS_RXMIS|rp.UART0_UARTMIS_RTMIS) != 0 {
		for !u.bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE) {
			r := u.bus.UARTDR.Get()
			if r&(rp.UART0_UARTDR_OE|rp.UART0_UARTDR_BE|rp.UART0_UARTDR_PE|rp.UART0_UARTDR_FE) != 0 {
				continue
			}
			if u.port != nil {
				u.port.receiveComplete(byte(r & 0xFF))
			}
		}
		u.bus.UARTICR.Set(rp.UART0_UARTICR_RXIC | rp.UART0_UARTICR_RTIC)
		u.bus.UARTRSR.Set(0)
	}

	if mis&rp.UART0_UARTMIS_TXMIS != 0 {
		u.refill()
		u.bus.UARTICR.Set(rp.UART0_UARTICR_TXIC)
	}
}
