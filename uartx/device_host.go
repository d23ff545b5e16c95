//go:build !baremetal

package uartx

import (
	"sync"

	"go.uber.org/atomic"
)

// Host shim: a simulated single-core USART for tests and host tools, no
// device/* or machine deps.

// holdDepth is the receive holding FIFO of the USART: bytes that arrive while
// the receive interrupt is masked wait here until it is unmasked.
const holdDepth = 2

// Sim is a Device whose wire side is driven by the caller. Inject models a
// byte arriving at the receiver and Shift models the transmitter becoming
// ready for the next byte.
//
// Interrupt delivery and foreground register writes take the same lock, so a
// handler never overlaps foreground code that masked its source, as on a
// single core.
type Sim struct {
	cpu sync.Mutex

	port       *Port
	configured bool
	enabled    [2]bool
	baud       BaudRate
	divisor    uint16

	hold [holdDepth]byte
	held int

	overruns atomic.Uint32
	sent     atomic.Uint32
	received atomic.Uint32
}

// NewSim returns an unconfigured simulated channel.
func NewSim() *Sim { return &Sim{} }

func (s *Sim) attach(p *Port) {
	s.cpu.Lock()
	s.port = p
	s.cpu.Unlock()
}

func (s *Sim) configure() {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	s.configured = true
	s.held = 0
	s.enabled[irqTransmit] = false
	s.enabled[irqReceive] = true
}

func (s *Sim) setBaudRate(r BaudRate) {
	s.cpu.Lock()
	s.baud = r
	s.divisor = Divisor(r)
	s.cpu.Unlock()
}

func (s *Sim) setIRQ(src irqSource, on bool) {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	s.enabled[src] = on
	if on && src == irqReceive {
		s.deliverHeld()
	}
}

func (s *Sim) irqEnabled(src irqSource) bool {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	return s.enabled[src]
}

// deliverHeld runs the receive handler for bytes that waited in the holding
// FIFO. Caller holds cpu.
func (s *Sim) deliverHeld() {
	if s.port == nil {
		return
	}
	for i := 0; i < s.held; i++ {
		s.port.receiveComplete(s.hold[i])
	}
	s.held = 0
}

// Inject delivers one byte to the receiver. With the receive interrupt
// unmasked the handler runs before Inject returns; otherwise the byte waits in
// the holding FIFO, and a byte arriving with the FIFO full is lost as an
// overrun. Bytes arriving before Initialize are ignored.
func (s *Sim) Inject(b byte) {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	if !s.configured {
		return
	}
	s.received.Inc()
	if s.enabled[irqReceive] && s.port != nil && s.held == 0 {
		s.port.receiveComplete(b)
		return
	}
	if s.held == holdDepth {
		s.overruns.Inc()
		return
	}
	s.hold[s.held] = b
	s.held++
}

// ReceiveReady reports whether the receive interrupt is unmasked and the
// holding FIFO is empty, so a byte injected now reaches the handler at once.
// Feeders without line timing use it to pace themselves against the
// foreground's critical sections.
func (s *Sim) ReceiveReady() bool {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	return s.configured && s.enabled[irqReceive] && s.held == 0
}

// InjectString delivers each byte of str in order.
func (s *Sim) InjectString(str string) {
	for i := 0; i < len(str); i++ {
		s.Inject(str[i])
	}
}

// Shift raises one transmit-ready event. It returns the byte the handler
// wrote to the data register, or false when the transmit interrupt is masked
// and nothing was sent.
func (s *Sim) Shift() (byte, bool) {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	if !s.configured || !s.enabled[irqTransmit] || s.port == nil {
		return 0, false
	}
	b, ok, drained := s.port.transmitReady()
	if drained {
		s.enabled[irqTransmit] = false
	}
	if ok {
		s.sent.Inc()
	}
	return b, ok
}

// ShiftAll raises transmit-ready events until the transmitter goes idle or
// limit bytes were sent, appending them to dst.
func (s *Sim) ShiftAll(dst []byte, limit int) []byte {
	for i := 0; i < limit; i++ {
		b, ok := s.Shift()
		if !ok {
			break
		}
		dst = append(dst, b)
	}
	return dst
}

// Configured reports whether Initialize has configured the channel.
func (s *Sim) Configured() bool {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	return s.configured
}

// Baud returns the symbolic rate last programmed.
func (s *Sim) Baud() BaudRate {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	return s.baud
}

// Divisor returns the UBRR value last programmed.
func (s *Sim) Divisor() uint16 {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	return s.divisor
}

// Overruns returns the number of bytes lost in the holding FIFO.
func (s *Sim) Overruns() uint32 { return s.overruns.Load() }

// Transmitted returns the number of bytes handed to the wire by Shift.
func (s *Sim) Transmitted() uint32 { return s.sent.Load() }

// Received returns the number of bytes that reached the receiver.
func (s *Sim) Received() uint32 { return s.received.Load() }
