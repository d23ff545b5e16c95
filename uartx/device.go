package uartx

// irqSource names one of the two interrupt sources of a channel.
type irqSource uint8

const (
	irqReceive  irqSource = iota // receive complete
	irqTransmit                  // transmit register ready
)

// Device is the register-level view of one UART channel. The set of
// implementations is closed: the AVR USART, the RP2 PL011 and the host Sim.
//
// A backend owns the interrupt vectors of its channel. Its receive handler
// passes every arrived byte to Port.receiveComplete; its transmit-ready
// handler writes the byte returned by Port.transmitReady to the data register
// and masks the transmit source once the port reports the ring drained.
type Device interface {
	// attach routes the channel's interrupts to p.
	attach(p *Port)
	// configure sets 8N1, enables receiver and transmitter, unmasks the
	// receive interrupt and leaves transmit-ready masked.
	configure()
	// setBaudRate programs the divisor for r.
	setBaudRate(r BaudRate)
	// setIRQ masks or unmasks one interrupt source.
	setIRQ(src irqSource, on bool)
	// irqEnabled reports whether src is unmasked.
	irqEnabled(src irqSource) bool
}

// guard is a critical section over one interrupt source of one port. It
// remembers whether the source was unmasked on entry.
type guard struct {
	dev  Device
	src  irqSource
	prev bool
}

// enter masks src and returns the guard that restores it.
func (p *Port) enter(src irqSource) guard {
	g := guard{dev: p.dev, src: src, prev: p.dev.irqEnabled(src)}
	p.dev.setIRQ(src, false)
	return g
}

// release restores the enablement found by enter. Nested guards undo in
// reverse order, so an inner release leaves an outer section masked.
func (g guard) release() {
	if g.prev {
		g.dev.setIRQ(g.src, true)
	}
}

// arm leaves the section with the source unmasked whatever its prior state.
// The TX path uses it so freshly queued bytes get a transmit-ready event.
func (g guard) arm() {
	g.dev.setIRQ(g.src, true)
}
