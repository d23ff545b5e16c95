// Package cranelink encodes and decodes the joystick-to-crane record carried
// over a uartx line port.
//
// A record is five payload bytes followed by uartx.LineSeparator:
//
//	Y X Slide Grip Auto '\n'
//
// Y, X and Slide are raw 8-bit axis readings. Grip and Auto are 0 or 1.
// Payload bytes are never equal to the separator; Encode moves such values
// up by one so the frame boundary survives.
package cranelink

import (
	"errors"
	"fmt"

	"github.com/jangala-dev/tinygo-cranelink/uartx"
)

// FrameSize is the number of payload bytes in a record.
const FrameSize = 5

// LineBufferSize is the receive buffer the crane uses for one line.
const LineBufferSize = 40

// Axis readings at rest, as the crane assumes before the first record.
const (
	NeutralX     = 137
	NeutralY     = 140
	NeutralSlide = 100
)

var (
	// ErrNoFrame is returned by Receive when no complete line is queued.
	ErrNoFrame = errors.New("cranelink: no complete frame")
	// ErrShortFrame is returned for a line with fewer than FrameSize bytes.
	ErrShortFrame = errors.New("cranelink: short frame")
)

// Frame is one joystick sample.
type Frame struct {
	Y     byte // trolley axis
	X     byte // jib rotation axis
	Slide byte // slide motor axis
	Grip  byte // 1 closes the gripper
	Auto  byte // 1 selects the automatic program
}

// Neutral returns the frame the crane holds before any record arrives.
func Neutral() Frame {
	return Frame{Y: NeutralY, X: NeutralX, Slide: NeutralSlide}
}

// ByteWriter queues single bytes for transmission; *uartx.Port satisfies it.
type ByteWriter interface {
	PutByte(b byte)
}

// LinePort is the receive side of a line-framed port; *uartx.Port
// satisfies it.
type LinePort interface {
	PendingLineCount() int
	GetLine(out []byte) int
}

func payload(b byte) byte {
	if b == uartx.LineSeparator {
		return uartx.LineSeparator + 1
	}
	return b
}

func flag(b byte) byte {
	if b != 0 {
		return 1
	}
	return 0
}

// AppendTo appends the wire form of f, separator included, to dst.
func (f Frame) AppendTo(dst []byte) []byte {
	return append(dst,
		payload(f.Y),
		payload(f.X),
		payload(f.Slide),
		flag(f.Grip),
		flag(f.Auto),
		uartx.LineSeparator,
	)
}

// Send queues f on w one byte at a time. Bytes that do not fit in the
// transmit ring are dropped, so a congested link loses whole or partial
// records rather than stalling the sampling loop.
func (f Frame) Send(w ByteWriter) {
	var buf [FrameSize + 1]byte
	for _, b := range f.AppendTo(buf[:0]) {
		w.PutByte(b)
	}
}

func (f Frame) String() string {
	return fmt.Sprintf("y=%d x=%d slide=%d grip=%d auto=%d", f.Y, f.X, f.Slide, f.Grip, f.Auto)
}

// Decode parses a line without its separator. Bytes past FrameSize are
// ignored.
func Decode(line []byte) (Frame, error) {
	if len(line) < FrameSize {
		return Frame{}, fmt.Errorf("%w: %d of %d bytes", ErrShortFrame, len(line), FrameSize)
	}
	return Frame{
		Y:     line[0],
		X:     line[1],
		Slide: line[2],
		Grip:  line[3],
		Auto:  line[4],
	}, nil
}

// Receive takes the next complete line from p and decodes it. It returns
// ErrNoFrame without consuming anything when no line is pending.
func Receive(p LinePort) (Frame, error) {
	if p.PendingLineCount() == 0 {
		return Frame{}, ErrNoFrame
	}
	var buf [LineBufferSize]byte
	n := p.GetLine(buf[:])
	return Decode(buf[:n])
}
