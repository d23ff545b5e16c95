//go:build !clock8mhz && !clock20mhz

package uartx

// CPUFrequency is the core clock the divisor table is computed for. 16 MHz is
// used unless the clock8mhz or clock20mhz build tag selects another table.
const CPUFrequency = 16_000_000

var divisors = [numBaudRates]uint16{
	416, // 2400
	207, // 4800
	103, // 9600
	51,  // 19200
	25,  // 38400
	16,  // 57600
	8,   // 115200
	3,   // 230400
	3,   // 250000
}
