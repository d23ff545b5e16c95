package uartx

// PortID selects one of the two physical channels.
type PortID uint8

const (
	UART0 PortID = iota
	UART1

	NumPorts = 2
)

// Ring capacities are fixed per channel. UART0 carries the multi-field
// joystick records; UART1 is kept minimal.
const (
	UART0RxBufferSize = 150
	UART0TxBufferSize = 150
	UART1RxBufferSize = 16
	UART1TxBufferSize = 16
)

// Ports is the registry of both channels together with the storage backing
// their rings. It lives for the whole program.
type Ports struct {
	ports [NumPorts]Port

	rx0 [UART0RxBufferSize]byte
	tx0 [UART0TxBufferSize]byte
	rx1 [UART1RxBufferSize]byte
	tx1 [UART1TxBufferSize]byte
}

// NewPorts binds dev0 to UART0 and dev1 to UART1. The ports still need
// Initialize before they move any data.
func NewPorts(dev0, dev1 Device) *Ports {
	ps := &Ports{}
	ps.ports[UART0] = Port{id: UART0, dev: dev0, rxStorage: ps.rx0[:], txStorage: ps.tx0[:]}
	ps.ports[UART1] = Port{id: UART1, dev: dev1, rxStorage: ps.rx1[:], txStorage: ps.tx1[:]}
	for i := range ps.ports {
		p := &ps.ports[i]
		p.rx.Init(p.rxStorage)
		p.tx.Init(p.txStorage)
		p.baud = DefaultBaudRate
	}
	return ps
}

// Port returns the channel id. It panics on an id outside [UART0, UART1].
func (ps *Ports) Port(id PortID) *Port {
	if id >= NumPorts {
		panic("uartx: unknown port")
	}
	return &ps.ports[id]
}
