//go:build atmega1284p

package uartx

import (
	"device/avr"
	"runtime/interrupt"
	"runtime/volatile"
)

// usart is one ATmega USART channel. RXCIE gates the receive-complete vector
// and UDRIE gates the data-register-empty vector.
type usart struct {
	port *Port

	ucsra *volatile.Register8
	ucsrb *volatile.Register8
	ucsrc *volatile.Register8
	ubrrh *volatile.Register8
	ubrrl *volatile.Register8
	udr   *volatile.Register8

	rxcie, udrie, rxen, txen uint8
	ucsz0, ucsz1             uint8
}

var (
	_usart0 = usart{
		ucsra: avr.UCSR0A, ucsrb: avr.UCSR0B, ucsrc: avr.UCSR0C,
		ubrrh: avr.UBRR0H, ubrrl: avr.UBRR0L, udr: avr.UDR0,
		rxcie: avr.UCSR0B_RXCIE0, udrie: avr.UCSR0B_UDRIE0,
		rxen: avr.UCSR0B_RXEN0, txen: avr.UCSR0B_TXEN0,
		ucsz0: avr.UCSR0C_UCSZ00, ucsz1: avr.UCSR0C_UCSZ01,
	}
	_usart1 = usart{
		ucsra: avr.UCSR1A, ucsrb: avr.UCSR1B, ucsrc: avr.UCSR1C,
		ubrrh: avr.UBRR1H, ubrrl: avr.UBRR1L, udr: avr.UDR1,
		rxcie: avr.UCSR1B_RXCIE1, udrie: avr.UCSR1B_UDRIE1,
		rxen: avr.UCSR1B_RXEN1, txen: avr.UCSR1B_TXEN1,
		ucsz0: avr.UCSR1C_UCSZ10, ucsz1: avr.UCSR1C_UCSZ11,
	}

	hardware = NewPorts(&_usart0, &_usart1)
)

func init() {
	interrupt.New(avr.IRQ_USART0_RX, _usart0.handleRX)
	interrupt.New(avr.IRQ_USART0_UDRE, _usart0.handleUDRE)
	interrupt.New(avr.IRQ_USART1_RX, _usart1.handleRX)
	interrupt.New(avr.IRQ_USART1_UDRE, _usart1.handleUDRE)
}

// Hardware returns the registry bound to USART0 and USART1.
func Hardware() *Ports { return hardware }

func (u *usart) attach(p *Port) { u.port = p }

// configure: asynchronous, no parity, 1 stop bit, 8 data bits, normal speed.
func (u *usart) configure() {
	u.ucsrc.Set(u.ucsz1 | u.ucsz0)
	u.ucsrb.Set(u.rxcie | u.rxen | u.txen)
	u.ucsra.Set(0)
}

func (u *usart) setBaudRate(r BaudRate) {
	ubrr := Divisor(r)
	u.ubrrh.Set(uint8(ubrr >> 8))
	u.ubrrl.Set(uint8(ubrr))
}

func (u *usart) bit(src irqSource) uint8 {
	if src == irqTransmit {
		return u.udrie
	}
	return u.rxcie
}

func (u *usart) setIRQ(src irqSource, on bool) {
	if on {
		u.ucsrb.SetBits(u.bit(src))
	} else {
		u.ucsrb.ClearBits(u.bit(src))
	}
}

func (u *usart) irqEnabled(src irqSource) bool {
	return u.ucsrb.HasBits(u.bit(src))
}

// handleRX runs when UDR holds a received byte. Reading UDR clears RXC.
func (u *usart) handleRX(interrupt.Interrupt) {
	b := u.udr.Get()
	if u.port != nil {
		u.port.receiveComplete(b)
	}
}

// handleUDRE runs while the data register is empty and UDRIE is set. It must
// mask UDRIE once the TX ring drains or it fires again immediately.
func (u *usart) handleUDRE(interrupt.Interrupt) {
	if u.port == nil {
		u.ucsrb.ClearBits(u.udrie)
		return
	}
	b, ok, drained := u.port.transmitReady()
	if ok {
		u.udr.Set(b)
	}
	if drained {
		u.ucsrb.ClearBits(u.udrie)
	}
}
