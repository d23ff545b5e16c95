package uartx

// BaudRate is a symbolic line speed. The divisor programmed into the
// hardware comes from the table of the clock selected at build time.
type BaudRate uint8

const (
	Baud2400 BaudRate = iota
	Baud4800
	Baud9600
	Baud19200
	Baud38400
	Baud57600
	Baud115200
	Baud230400
	Baud250000

	numBaudRates
)

// DefaultBaudRate is applied by Initialize.
const DefaultBaudRate = Baud9600

var bitsPerSecond = [numBaudRates]uint32{
	2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 250000,
}

// BitsPerSecond returns the nominal line speed, or 0 for an unknown symbol.
func (r BaudRate) BitsPerSecond() uint32 {
	if r >= numBaudRates {
		return 0
	}
	return bitsPerSecond[r]
}

// Valid reports whether r is one of the supported symbols.
func (r BaudRate) Valid() bool { return r < numBaudRates }

// LookupBaudRate maps a line speed in bits per second to its symbol.
func LookupBaudRate(bps uint32) (BaudRate, bool) {
	for i, v := range bitsPerSecond {
		if v == bps {
			return BaudRate(i), true
		}
	}
	return 0, false
}

// Divisor returns the UBRR value (normal speed, U2X=0) for r at CPUFrequency.
// Unknown symbols fall back to DefaultBaudRate.
func Divisor(r BaudRate) uint16 {
	if !r.Valid() {
		r = DefaultBaudRate
	}
	return divisors[r]
}
