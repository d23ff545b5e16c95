//go:build clock20mhz && !clock8mhz

package uartx

// CPUFrequency is the core clock the divisor table is computed for.
const CPUFrequency = 20_000_000

var divisors = [numBaudRates]uint16{
	520, // 2400
	259, // 4800
	129, // 9600
	64,  // 19200
	32,  // 38400
	21,  // 57600
	10,  // 115200
	4,   // 230400
	4,   // 250000
}
