// uartx/uartx.go

// Package uartx provides an interrupt-driven, line-framed serial driver for
// two independent UART channels. Each Port owns a software RX ring filled by
// the receive-complete interrupt and a software TX ring drained by the
// transmit-ready interrupt. Foreground calls never block on the receive side:
// they return (0, false) or an empty result when nothing is queued. PutString
// and Flush spin until the TX ring has room or drains.
//
// Every foreground access to a ring runs with the interrupt source that
// touches that ring masked, and restores the source afterwards.
package uartx

import (
	"errors"
	"runtime"
	"strings"
)

// ErrBufferEmpty is returned by ReadByte when the RX ring holds nothing.
var ErrBufferEmpty = errors.New("UART buffer empty")

// EmptyPlaceholder is written by GetString when there was nothing to copy.
const EmptyPlaceholder = "-empty-"

// Port is one serial channel with its RX and TX rings.
type Port struct {
	id   PortID
	dev  Device
	baud BaudRate

	rx RingBuffer // filled by receiveComplete
	tx RingBuffer // drained by transmitReady

	rxStorage []byte
	txStorage []byte

	stats portStats
}

// ID returns the channel this port drives.
func (p *Port) ID() PortID { return p.id }

// Baud returns the last rate applied with SetBaudRate.
func (p *Port) Baud() BaudRate { return p.baud }

// Initialize configures the channel for 8N1 with receiver, transmitter and
// receive interrupt enabled, resets both rings and applies DefaultBaudRate.
func (p *Port) Initialize() {
	p.dev.setIRQ(irqReceive, false)
	p.dev.setIRQ(irqTransmit, false)
	p.rx.Init(p.rxStorage)
	p.tx.Init(p.txStorage)
	p.dev.attach(p)
	p.dev.configure()
	p.SetBaudRate(DefaultBaudRate)
}

// SetBaudRate programs the divisor for r. The update takes effect at once, so
// a byte being shifted out while it happens may be corrupted; call Flush
// first if that matters.
func (p *Port) SetBaudRate(r BaudRate) {
	if !r.Valid() {
		r = DefaultBaudRate
	}
	p.baud = r
	p.dev.setBaudRate(r)
}

// PutByte queues b for transmission. A full TX ring drops b silently.
func (p *Port) PutByte(b byte) {
	g := p.enter(irqTransmit)
	p.dbgTx(p.tx.Push(b))
	g.arm()
}

// PutString queues s for transmission up to its first NUL byte, if any. It
// spins while the TX ring is full, so it may take as long as the line needs
// to drain the excess.
func (p *Port) PutString(s string) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	putAll(p, s)
}

// putAll pushes each run of free space under a single critical section.
func putAll[T ~string | ~[]byte](p *Port, s T) {
	i := 0
	for i < len(s) {
		for p.txFull() {
			runtime.Gosched()
		}
		g := p.enter(irqTransmit)
		for i < len(s) && !p.tx.IsFull() {
			p.dbgTx(p.tx.Push(s[i]))
			i++
		}
		g.arm()
	}
}

func (p *Port) txFull() bool {
	g := p.enter(irqTransmit)
	full := p.tx.IsFull()
	g.release()
	return full
}

// GetByte removes the oldest received byte. It returns (0, false) when the RX
// ring is empty.
func (p *Port) GetByte() (byte, bool) {
	g := p.enter(irqReceive)
	defer g.release()
	return p.rx.Pop()
}

// GetString drains the RX ring into out until the ring is empty or
// len(out)-1 bytes are copied, then NUL-terminates. It returns the number of
// bytes copied. When nothing was copied out holds EmptyPlaceholder instead.
// Stopping at the length cap leaves the rest queued; IsReceiveBufferEmpty
// tells the two cases apart.
func (p *Port) GetString(out []byte) int {
	if len(out) == 0 {
		return 0
	}
	n := 0
	for n < len(out)-1 {
		b, ok := p.GetByte()
		if !ok {
			break
		}
		out[n] = b
		n++
	}
	if n == 0 {
		k := copy(out[:len(out)-1], EmptyPlaceholder)
		out[k] = 0
		return 0
	}
	out[n] = 0
	return n
}

// GetLine copies the next complete line into out, without its separator,
// and NUL-terminates it. It returns the number of bytes copied.
//
// With no complete line queued it returns 0 and consumes nothing, so check
// PendingLineCount first rather than calling GetLine speculatively. A line
// longer than len(out)-1 is split: its remainder stays queued and is returned
// by the next call.
func (p *Port) GetLine(out []byte) int {
	if len(out) == 0 {
		return 0
	}
	n := 0
	if p.PendingLineCount() > 0 {
		for n < len(out)-1 {
			b, ok := p.GetByte()
			if !ok || b == LineSeparator {
				break
			}
			out[n] = b
			n++
		}
	}
	out[n] = 0
	return n
}

// CleanReceiveBuffer discards everything in the RX ring. PendingLineCount is
// not reduced by separators discarded this way.
func (p *Port) CleanReceiveBuffer() {
	g := p.enter(irqReceive)
	p.rx.Clear()
	g.release()
}

// Flush spins until the TX ring is empty. The last byte may still be on its
// way out of the shift register when Flush returns.
func (p *Port) Flush() {
	for !p.IsTransmitBufferEmpty() {
		runtime.Gosched()
	}
}

// IsReceiveBufferEmpty reports whether the RX ring holds no bytes.
func (p *Port) IsReceiveBufferEmpty() bool {
	g := p.enter(irqReceive)
	defer g.release()
	return p.rx.IsEmpty()
}

// IsTransmitBufferEmpty reports whether every queued byte has been handed to
// the hardware.
func (p *Port) IsTransmitBufferEmpty() bool {
	g := p.enter(irqTransmit)
	defer g.release()
	return p.tx.IsEmpty()
}

// PendingLineCount returns the number of separators in the RX ring, which is
// the number of GetLine calls that will return a complete line.
func (p *Port) PendingLineCount() int {
	g := p.enter(irqReceive)
	defer g.release()
	return p.rx.LineCount()
}

// Buffered returns the number of bytes currently stored in the RX ring.
func (p *Port) Buffered() int {
	g := p.enter(irqReceive)
	defer g.release()
	return p.rx.Used()
}

// ---------------- io adapters, machine.UART-compatible ----------------

// Read copies up to len(b) queued bytes and never blocks. It returns 0, nil
// when nothing is queued.
func (p *Port) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) {
		c, ok := p.GetByte()
		if !ok {
			break
		}
		b[n] = c
		n++
	}
	return n, nil
}

// ReadByte implements io.ByteReader.
func (p *Port) ReadByte() (byte, error) {
	if c, ok := p.GetByte(); ok {
		return c, nil
	}
	return 0, ErrBufferEmpty
}

// Write implements io.Writer with PutString's blocking behaviour. Unlike
// PutString it sends NUL bytes.
func (p *Port) Write(b []byte) (int, error) {
	putAll(p, b)
	return len(b), nil
}

// WriteByte queues c, spinning while the TX ring is full. Use PutByte for
// the dropping variant.
func (p *Port) WriteByte(c byte) error {
	putAll(p, []byte{c})
	return nil
}

// ------------------------------- ISR side --------------------------------

// receiveComplete is the receive-complete handler body. Overflow is dropped.
func (p *Port) receiveComplete(b byte) {
	p.dbgRx(p.rx.Push(b))
}

// transmitReady is the transmit-ready handler body. It pops the next byte to
// hand to the data register; drained reports that the ring is now empty and
// the backend must mask the transmit source.
func (p *Port) transmitReady() (b byte, ok, drained bool) {
	b, ok = p.tx.Pop()
	return b, ok, p.tx.IsEmpty()
}
