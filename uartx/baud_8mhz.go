//go:build clock8mhz

package uartx

// CPUFrequency is the core clock the divisor table is computed for.
const CPUFrequency = 8_000_000

var divisors = [numBaudRates]uint16{
	207, // 2400, error 0.2%
	103, // 4800, error 0.2%
	51,  // 9600, error 0.2%
	25,  // 19200
	12,  // 38400
	8,   // 57600
	3,   // 115200, error 8.5%
	1,   // 230400
	1,   // 250000
}
