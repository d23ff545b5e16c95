// Package hostlink runs a simulated uartx port against a host serial device,
// so board programs can be exercised on a workstation. The bridge plays the
// part of the USART wire side: bytes read from the device raise receive
// interrupts on the Sim, and transmit-ready events are raised at the line
// rate, their bytes written back to the device.
package hostlink

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/jangala-dev/tinygo-cranelink/uartx"
)

const readChunk = 256

// Bridge pumps bytes between Conn and Sim.
type Bridge struct {
	Sim  *uartx.Sim
	Conn io.ReadWriteCloser

	// Tick is the pump period.
	Tick time.Duration
	// BytesPerTick caps the bytes moved in each direction per tick.
	BytesPerTick int
}

// NewBridge creates a Bridge with the default pacing.
func NewBridge(sim *uartx.Sim, conn io.ReadWriteCloser) *Bridge {
	return &Bridge{
		Sim:          sim,
		Conn:         conn,
		Tick:         defaultConfig.Tick,
		BytesPerTick: bytesPerTick(defaultConfig.Baud, defaultConfig.Tick),
	}
}

// Run pumps until ctx is done or Conn fails. Run owns Conn and closes it on
// return.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.Conn.Close()

	perTick := b.BytesPerTick
	if perTick < 1 {
		perTick = 1
	}
	tick := b.Tick
	if tick <= 0 {
		tick = time.Millisecond
	}

	rxCh := make(chan []byte, 16)
	errCh := make(chan error, 1)
	go b.readLoop(ctx, rxCh, errCh)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var pending, out []byte
	for {
		select {
		case <-ctx.Done():
			glog.V(1).Info("bridge stopped")
			return ctx.Err()
		case err := <-errCh:
			return fmt.Errorf("hostlink: read: %w", err)
		case chunk := <-rxCh:
			pending = append(pending, chunk...)
		case <-ticker.C:
			n := 0
			for n < len(pending) && n < perTick && b.Sim.ReceiveReady() {
				b.Sim.Inject(pending[n])
				n++
			}
			if n > 0 && glog.V(2) {
				glog.Infof("RX %q", pending[:n])
			}
			pending = pending[n:]

			out = b.Sim.ShiftAll(out[:0], perTick)
			if len(out) == 0 {
				continue
			}
			if glog.V(2) {
				glog.Infof("TX %q", out)
			}
			if _, err := b.Conn.Write(out); err != nil {
				return fmt.Errorf("hostlink: write: %w", err)
			}
		}
	}
}

func (b *Bridge) readLoop(ctx context.Context, rxCh chan<- []byte, errCh chan<- error) {
	buf := make([]byte, readChunk)
	for {
		n, err := b.Conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case rxCh <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				glog.Warningf("read: %v", err)
			}
			errCh <- err
			return
		}
	}
}
