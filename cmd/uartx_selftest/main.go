//go:build rp2040 || rp2350

package main

import (
	"crypto/sha1"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-cranelink/cranelink"
	"github.com/jangala-dev/tinygo-cranelink/uartx"
)

// On-target self-test. Wire UART0 TX to RX (GP0 to GP1) and watch USB CDC.

var (
	p    = uartx.Hardware().Port(uartx.UART0)
	baud = uartx.Baud115200
)

func drain(p *uartx.Port) {
	for {
		if _, ok := p.GetByte(); !ok {
			return
		}
	}
}

// waitFor polls cond until it holds or d elapses.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

// recvExact reads exactly n bytes or gives up after d.
func recvExact(p *uartx.Port, n int, d time.Duration) ([]byte, bool) {
	out := make([]byte, 0, n)
	var buf [128]byte
	deadline := time.Now().Add(d)
	for len(out) < n {
		if k, _ := p.Read(buf[:min(len(buf), n-len(out))]); k > 0 {
			out = append(out, buf[:k]...)
			continue
		}
		if time.Now().After(deadline) {
			return out, false
		}
		time.Sleep(time.Millisecond)
	}
	return out, true
}

func ledBlink(times int, on time.Duration) {
	for i := 0; i < times; i++ {
		machine.LED.High()
		time.Sleep(on)
		machine.LED.Low()
		time.Sleep(on)
	}
}

func main() {
	// Give the monitor time to attach.
	time.Sleep(3 * time.Second)

	println("uartx self-test starting")

	p.Initialize()
	p.SetBaudRate(baud)

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	drain(p)

	pass, fail := 0, 0
	defer func() {
		println("")
		println("Summary")
		println("  passed =", pass)
		println("  failed =", fail)
		if fail == 0 {
			ledBlink(3, 120*time.Millisecond)
		} else {
			for {
				ledBlink(1, 600*time.Millisecond)
				time.Sleep(800 * time.Millisecond)
			}
		}
	}()

	run := func(name string, f func() string) {
		println("")
		println("[Test]", name)
		if msg := f(); msg == "" {
			println("  PASS")
			pass++
		} else {
			println("  FAIL:", msg)
			fail++
		}
	}

	run("idle: empty rings after Initialize", func() string {
		if !p.IsReceiveBufferEmpty() || !p.IsTransmitBufferEmpty() {
			return "not empty"
		}
		if p.PendingLineCount() != 0 {
			return "stale line count"
		}
		return ""
	})

	run("placeholder: GetString with nothing queued", func() string {
		drain(p)
		var out [16]byte
		if p.GetString(out[:]) != 0 || string(out[:len(uartx.EmptyPlaceholder)]) != uartx.EmptyPlaceholder {
			return "no placeholder"
		}
		return ""
	})

	run("framing: two lines", func() string {
		drain(p)
		p.PutString("first line\nsecond\n")
		if !waitFor(time.Second, func() bool { return p.PendingLineCount() == 2 }) {
			return "timeout, lines=" + itoa(p.PendingLineCount())
		}
		var out [40]byte
		if n := p.GetLine(out[:]); string(out[:n]) != "first line" {
			return "first mismatch"
		}
		if n := p.GetLine(out[:]); string(out[:n]) != "second" {
			return "second mismatch"
		}
		if !p.IsReceiveBufferEmpty() {
			return "leftover bytes"
		}
		return ""
	})

	run("framing: line split at buffer length", func() string {
		drain(p)
		p.PutString("abcdefgh\n")
		if !waitFor(time.Second, func() bool { return p.PendingLineCount() == 1 }) {
			return "timeout"
		}
		var out [5]byte
		if n := p.GetLine(out[:]); string(out[:n]) != "abcd" {
			return "head mismatch"
		}
		if n := p.GetLine(out[:]); string(out[:n]) != "efgh" {
			return "tail mismatch"
		}
		if n := p.GetLine(out[:]); n != 0 || p.PendingLineCount() != 0 {
			return "separator not consumed"
		}
		return ""
	})

	run("cranelink: record round trip", func() string {
		drain(p)
		want := cranelink.Frame{Y: 12, X: 250, Slide: 10, Grip: 1, Auto: 1}
		want.Send(p)
		if !waitFor(time.Second, func() bool { return p.PendingLineCount() == 1 }) {
			return "timeout"
		}
		got, err := cranelink.Receive(p)
		if err != nil {
			return err.Error()
		}
		want.Slide = uartx.LineSeparator + 1
		if got != want {
			return "mismatch"
		}
		return ""
	})

	run("overflow: RX ring caps at capacity", func() string {
		drain(p)
		n := uartx.UART0RxBufferSize + 50
		for i := 0; i < n; i++ {
			p.PutByte('o')
			if i%uartx.UART0TxBufferSize == 0 {
				p.Flush()
			}
		}
		p.Flush()
		time.Sleep(50 * time.Millisecond)
		if got := p.Buffered(); got != uartx.UART0RxBufferSize {
			return "buffered=" + itoa(got)
		}
		drain(p)
		return ""
	})

	run("binary: 4 KiB integrity (SHA-1)", func() string {
		drain(p)
		n := 4 * 1024
		src := make([]byte, n)
		var x uint32 = 0x12345678
		for i := range src {
			x = 1664525*x + 1013904223
			src[i] = byte(x >> 24)
		}
		want := sha1.Sum(src)

		go func() { _, _ = p.Write(src) }()
		got, ok := recvExact(p, n, 3*time.Second)
		if !ok {
			return "timeout/short read, got " + itoa(len(got))
		}
		if sha1.Sum(got) != want {
			return "hash mismatch"
		}
		return ""
	})

	run("throughput: 16 KiB", func() string {
		drain(p)
		n := 16 * 1024
		src := make([]byte, n)
		for i := 0; i < n; i++ {
			src[i] = byte(i * 31)
		}

		start := time.Now()
		go func() { _, _ = p.Write(src) }()
		if _, ok := recvExact(p, n, 5*time.Second); !ok {
			return "timeout"
		}

		elapsed := time.Since(start)
		ms := int(elapsed / time.Millisecond)
		if ms <= 0 {
			ms = 1
		}
		kbpsX100 := (n*8*100 + ms/2) / ms
		println("  speed =", formatFixed2(kbpsX100), "kbps")
		return ""
	})

	run("baud: switch to 9600 after Flush", func() string {
		p.Flush()
		time.Sleep(2 * time.Millisecond)
		p.SetBaudRate(uartx.Baud9600)
		defer p.SetBaudRate(baud)
		drain(p)
		msg := "slow-ok\n"
		p.PutString(msg)
		got, ok := recvExact(p, len(msg), time.Second)
		if !ok || string(got) != msg {
			return "mismatch"
		}
		return ""
	})

	println("")
	println("All tests completed")
}

// --- tiny helpers (no fmt) ---

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := false
	if n < 0 {
		neg = true
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + itoa(n)
	}
	return itoa(n)
}

func formatFixed2(x int) string {
	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}
	whole := x / 100
	frac := x % 100
	return sign + itoa(whole) + "." + twoDigits(frac)
}
