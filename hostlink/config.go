package hostlink

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.bug.st/serial"

	"github.com/jangala-dev/tinygo-cranelink/uartx"
)

// Config defines how a simulated port is bridged to a host serial device.
type Config struct {
	// Device is the serial device path, e.g. /dev/ttyUSB0.
	Device string
	// Baud is the line speed in bits per second. Only the rates with a
	// uartx.BaudRate symbol are accepted.
	Baud int
	// Tick is the period of the bridge pump.
	Tick time.Duration
}

var defaultConfig = Config{
	Device: "/dev/ttyUSB0",
	Baud:   9600,
	Tick:   time.Millisecond,
}

func init() {
	if val := os.Getenv("CRANELINK_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device to bridge.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Line speed in bits per second.")
	flag.DurationVar(&defaultConfig.Tick, "tick", defaultConfig.Tick, "Bridge pump period.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// BaudRate maps Baud to its symbol.
func (c *Config) BaudRate() (uartx.BaudRate, error) {
	r, ok := uartx.LookupBaudRate(uint32(c.Baud))
	if !ok {
		return 0, fmt.Errorf("hostlink: unsupported baud rate %d", c.Baud)
	}
	return r, nil
}

// Open opens Device at Baud, 8N1.
func (c *Config) Open() (serial.Port, error) {
	if _, err := c.BaudRate(); err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: c.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(c.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("hostlink: open %s: %w", c.Device, err)
	}
	return p, nil
}

// NewBridge creates a Bridge between sim and conn paced for this config.
func (c *Config) NewBridge(sim *uartx.Sim, conn io.ReadWriteCloser) *Bridge {
	b := NewBridge(sim, conn)
	if c.Tick > 0 {
		b.Tick = c.Tick
	}
	b.BytesPerTick = bytesPerTick(c.Baud, b.Tick)
	return b
}

// bytesPerTick is how many 8N1 frames (10 bits each) fit in one tick at
// baud, at least one.
func bytesPerTick(baud int, tick time.Duration) int {
	n := int(int64(baud) * int64(tick) / int64(10*time.Second))
	if n < 1 {
		return 1
	}
	return n
}
