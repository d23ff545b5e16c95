//go:build !baremetal

package uartx

import (
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func newTestPort(t *testing.T, id PortID) (*Port, *Sim) {
	t.Helper()
	sims := [NumPorts]*Sim{NewSim(), NewSim()}
	ps := NewPorts(sims[0], sims[1])
	p := ps.Port(id)
	p.Initialize()
	return p, sims[id]
}

// pump shifts bytes out of s until want bytes were seen or the deadline hits.
func pump(t *testing.T, s *Sim, want int) []byte {
	t.Helper()
	var got []byte
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < want {
		if time.Now().After(deadline) {
			t.Fatalf("pump: got %d of %d bytes: %q", len(got), want, got)
		}
		if b, ok := s.Shift(); ok {
			got = append(got, b)
			continue
		}
		runtime.Gosched()
	}
	return got
}

func TestInitialize_Defaults(t *testing.T) {
	p, s := newTestPort(t, UART0)

	require.True(t, s.Configured())
	require.Equal(t, DefaultBaudRate, p.Baud())
	require.Equal(t, Baud9600, s.Baud())
	require.Equal(t, Divisor(Baud9600), s.Divisor())
	require.True(t, s.irqEnabled(irqReceive))
	require.False(t, s.irqEnabled(irqTransmit))
	require.True(t, p.IsReceiveBufferEmpty())
	require.True(t, p.IsTransmitBufferEmpty())
	require.Equal(t, 0, p.PendingLineCount())
}

func TestInitialize_ResetsRings(t *testing.T) {
	p, s := newTestPort(t, UART0)
	s.InjectString("junk\n")
	p.PutByte('x')

	p.Initialize()
	require.True(t, p.IsReceiveBufferEmpty())
	require.True(t, p.IsTransmitBufferEmpty())
	require.Equal(t, 0, p.PendingLineCount())
	_, ok := s.Shift()
	require.False(t, ok)
}

func TestInjectBeforeInitializeIgnored(t *testing.T) {
	s := NewSim()
	ps := NewPorts(s, NewSim())
	s.InjectString("lost\n")
	require.Zero(t, s.Received())

	p := ps.Port(UART0)
	p.Initialize()
	require.True(t, p.IsReceiveBufferEmpty())
}

func TestSetBaudRate(t *testing.T) {
	p, s := newTestPort(t, UART1)

	p.SetBaudRate(Baud115200)
	require.Equal(t, Baud115200, p.Baud())
	require.Equal(t, Divisor(Baud115200), s.Divisor())

	p.SetBaudRate(BaudRate(200))
	require.Equal(t, DefaultBaudRate, p.Baud())
	require.Equal(t, Divisor(DefaultBaudRate), s.Divisor())
}

func TestGetLine_Split(t *testing.T) {
	p, s := newTestPort(t, UART0)
	s.InjectString("ab\ncd")

	require.Equal(t, 1, p.PendingLineCount())

	out := make([]byte, 10)
	n := p.GetLine(out)
	require.Equal(t, 2, n)
	require.Equal(t, "ab", string(out[:n]))
	require.Zero(t, out[n])

	require.Equal(t, 0, p.PendingLineCount())
	require.Equal(t, 2, p.Buffered())

	b, ok := p.GetByte()
	require.True(t, ok)
	require.Equal(t, byte('c'), b)
	b, ok = p.GetByte()
	require.True(t, ok)
	require.Equal(t, byte('d'), b)
	_, ok = p.GetByte()
	require.False(t, ok)
}

func TestGetLine_NoCompleteLine(t *testing.T) {
	p, s := newTestPort(t, UART0)
	s.InjectString("cd")

	out := []byte("zzzzzzzzzz")
	require.Equal(t, 0, p.GetLine(out))
	require.Zero(t, out[0])
	require.Equal(t, 2, p.Buffered(), "GetLine without a pending line must not consume")

	n := p.GetString(out)
	require.Equal(t, "cd", string(out[:n]))
}

func TestGetLine_LongLineIsSplit(t *testing.T) {
	p, s := newTestPort(t, UART0)
	s.InjectString("abcde\nz\n")
	require.Equal(t, 2, p.PendingLineCount())

	out := make([]byte, 4)
	n := p.GetLine(out)
	require.Equal(t, "abc", string(out[:n]))
	require.Equal(t, 2, p.PendingLineCount(), "separator of the split line is still queued")

	n = p.GetLine(out)
	require.Equal(t, "de", string(out[:n]))
	require.Equal(t, 1, p.PendingLineCount())

	n = p.GetLine(out)
	require.Equal(t, "z", string(out[:n]))
	require.Equal(t, 0, p.PendingLineCount())
	require.True(t, p.IsReceiveBufferEmpty())
}

func TestGetLine_EmptyLine(t *testing.T) {
	p, s := newTestPort(t, UART0)
	s.InjectString("\n")

	out := make([]byte, 8)
	require.Equal(t, 0, p.GetLine(out))
	require.Equal(t, 0, p.PendingLineCount())
	require.True(t, p.IsReceiveBufferEmpty())
}

func TestGetLine_ZeroLengthOut(t *testing.T) {
	p, s := newTestPort(t, UART0)
	s.InjectString("a\n")
	require.Equal(t, 0, p.GetLine(nil))
	require.Equal(t, 1, p.PendingLineCount())
}

func TestGetString_Placeholder(t *testing.T) {
	p, _ := newTestPort(t, UART0)

	out := make([]byte, 16)
	require.Equal(t, 0, p.GetString(out))
	require.Equal(t, EmptyPlaceholder, string(out[:len(EmptyPlaceholder)]))
	require.Zero(t, out[len(EmptyPlaceholder)])

	small := make([]byte, 4)
	require.Equal(t, 0, p.GetString(small))
	require.Equal(t, "-em", string(small[:3]))
	require.Zero(t, small[3])
}

func TestGetString_DrainsAndCaps(t *testing.T) {
	p, s := newTestPort(t, UART0)
	s.InjectString("he\nllo")

	out := make([]byte, 4)
	n := p.GetString(out)
	require.Equal(t, 3, n)
	require.Equal(t, "he\n", string(out[:n]))
	require.Zero(t, out[n])
	require.False(t, p.IsReceiveBufferEmpty())
	require.Equal(t, 0, p.PendingLineCount())

	out = make([]byte, 16)
	n = p.GetString(out)
	require.Equal(t, "llo", string(out[:n]))
	require.True(t, p.IsReceiveBufferEmpty())
}

func TestCleanReceiveBuffer_LeavesStaleLineCount(t *testing.T) {
	p, s := newTestPort(t, UART0)
	s.InjectString("a\nb")
	require.Equal(t, 1, p.PendingLineCount())

	p.CleanReceiveBuffer()
	require.True(t, p.IsReceiveBufferEmpty())
	require.Equal(t, 1, p.PendingLineCount())

	out := make([]byte, 8)
	require.Equal(t, 0, p.GetLine(out), "stale count yields an empty line")
}

func TestRXOverflowDrops(t *testing.T) {
	p, s := newTestPort(t, UART1)
	for i := 0; i < UART1RxBufferSize+4; i++ {
		s.Inject(byte('A' + i))
	}
	require.Equal(t, UART1RxBufferSize, p.Buffered())

	buf := make([]byte, 64)
	n, err := p.Read(buf)
	require.NoError(t, err)
	require.Equal(t, UART1RxBufferSize, n)
	for i := 0; i < n; i++ {
		require.Equal(t, byte('A'+i), buf[i])
	}
}

func TestHoldingFIFOWhileMasked(t *testing.T) {
	p, s := newTestPort(t, UART0)

	g := p.enter(irqReceive)
	s.InjectString("xyz")
	require.Equal(t, uint32(1), s.Overruns())
	require.Equal(t, 0, p.rx.Used(), "handler must not run while masked")
	g.release()

	require.Equal(t, 2, p.Buffered())
	b, _ := p.GetByte()
	require.Equal(t, byte('x'), b)
	b, _ = p.GetByte()
	require.Equal(t, byte('y'), b)
}

func TestPutByte_TXInterruptLifecycle(t *testing.T) {
	p, s := newTestPort(t, UART0)

	p.PutByte('x')
	require.True(t, s.irqEnabled(irqTransmit))
	require.False(t, p.IsTransmitBufferEmpty())

	b, ok := s.Shift()
	require.True(t, ok)
	require.Equal(t, byte('x'), b)
	require.False(t, s.irqEnabled(irqTransmit), "drained ring masks the transmit source")
	require.True(t, p.IsTransmitBufferEmpty())

	_, ok = s.Shift()
	require.False(t, ok)
	require.Equal(t, uint32(1), s.Transmitted())
}

func TestPutByte_DropsWhenFull(t *testing.T) {
	p, s := newTestPort(t, UART1)
	for i := 0; i < UART1TxBufferSize+5; i++ {
		p.PutByte(byte('a' + i))
	}

	got := s.ShiftAll(nil, 100)
	require.Len(t, got, UART1TxBufferSize)
	for i, b := range got {
		require.Equal(t, byte('a'+i), b)
	}
}

func TestPutString_StopsAtNUL(t *testing.T) {
	p, s := newTestPort(t, UART0)
	p.PutString("ab\x00cd")
	require.Equal(t, "ab", string(s.ShiftAll(nil, 10)))
}

func TestPutString_EmptyLeavesTXMasked(t *testing.T) {
	p, s := newTestPort(t, UART0)
	p.PutString("")
	require.False(t, s.irqEnabled(irqTransmit))
}

func TestPutString_SpinsUntilDrained(t *testing.T) {
	p, s := newTestPort(t, UART1)
	msg := "the quick brown fox jumps over the lazy dog\n"
	require.Greater(t, len(msg), UART1TxBufferSize)

	done := make(chan struct{})
	go func() {
		p.PutString(msg)
		close(done)
	}()

	got := pump(t, s, len(msg))
	require.Equal(t, msg, string(got))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PutString did not return")
	}
}

func TestFlush_WaitsForDrain(t *testing.T) {
	p, s := newTestPort(t, UART0)
	p.PutString("abc")

	done := make(chan struct{})
	go func() {
		p.Flush()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Flush returned with bytes queued")
	case <-time.After(20 * time.Millisecond):
	}

	require.Equal(t, "abc", string(pump(t, s, 3)))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Flush did not return")
	}
}

func TestWrite_SendsNUL(t *testing.T) {
	p, s := newTestPort(t, UART0)
	n, err := p.Write([]byte{0, 1, 2})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, p.WriteByte(0))
	require.Equal(t, []byte{0, 1, 2, 0}, s.ShiftAll(nil, 10))
}

func TestReadByte(t *testing.T) {
	p, s := newTestPort(t, UART0)
	_, err := p.ReadByte()
	require.ErrorIs(t, err, ErrBufferEmpty)

	s.Inject(0)
	b, err := p.ReadByte()
	require.NoError(t, err)
	require.Zero(t, b)

	n, err := p.Read(make([]byte, 4))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPortsAreIndependent(t *testing.T) {
	s0, s1 := NewSim(), NewSim()
	ps := NewPorts(s0, s1)
	p0, p1 := ps.Port(UART0), ps.Port(UART1)
	p0.Initialize()
	p1.Initialize()

	require.Equal(t, UART0, p0.ID())
	require.Equal(t, UART1, p1.ID())

	s0.InjectString("x\n")
	require.Equal(t, 1, p0.PendingLineCount())
	require.Equal(t, 0, p1.PendingLineCount())
	require.True(t, p1.IsReceiveBufferEmpty())

	p1.PutByte('q')
	_, ok := s0.Shift()
	require.False(t, ok)
	b, ok := s1.Shift()
	require.True(t, ok)
	require.Equal(t, byte('q'), b)

	p1.SetBaudRate(Baud57600)
	require.Equal(t, Baud9600, s0.Baud())
	require.Equal(t, Baud57600, s1.Baud())
}

func TestPorts_PortOutOfRange(t *testing.T) {
	ps := NewPorts(NewSim(), NewSim())
	require.Panics(t, func() { ps.Port(NumPorts) })
}

func TestPorts_Capacities(t *testing.T) {
	ps := NewPorts(NewSim(), NewSim())
	require.Equal(t, UART0RxBufferSize, ps.Port(UART0).rx.Size())
	require.Equal(t, UART0TxBufferSize, ps.Port(UART0).tx.Size())
	require.Equal(t, UART1RxBufferSize, ps.Port(UART1).rx.Size())
	require.Equal(t, UART1TxBufferSize, ps.Port(UART1).tx.Size())
}

// A producer interrupting a polling consumer: lines arrive intact and in
// order as long as the consumer keeps up.
func TestConcurrentLines(t *testing.T) {
	p, s := newTestPort(t, UART0)
	const lines = 300
	var consumed atomic.Int32

	// The producer is the wire: it never calls into the port, keeps at most
	// eight short lines in flight so the RX ring cannot overflow, and sends
	// at most one byte per masked window so the holding FIFO cannot overrun.
	go func() {
		for i := 0; i < lines; i++ {
			for int32(i)-consumed.Load() >= 8 {
				runtime.Gosched()
			}
			line := fmt.Sprintf("line %d\n", i)
			for j := 0; j < len(line); j++ {
				for !s.ReceiveReady() {
					runtime.Gosched()
				}
				s.Inject(line[j])
			}
		}
	}()

	out := make([]byte, 32)
	deadline := time.Now().Add(5 * time.Second)
	for i := 0; i < lines; {
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %d lines", i)
		}
		if p.PendingLineCount() == 0 {
			runtime.Gosched()
			continue
		}
		n := p.GetLine(out)
		require.Equal(t, fmt.Sprintf("line %d", i), string(out[:n]))
		i++
		consumed.Inc()
	}
	require.Zero(t, s.Overruns())
}
