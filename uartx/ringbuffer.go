// uartx/ringbuffer.go

package uartx

// LineSeparator delimits records in a receive stream.
const LineSeparator byte = '\n'

// RingBuffer is a fixed-capacity byte FIFO over caller-owned storage. It keeps
// separate write and read cursors, explicit empty/full flags and a live count
// of buffered LineSeparator bytes.
//
// RingBuffer does no locking. Each instance is shared by exactly one interrupt
// handler and one foreground accessor, and the foreground must hold the
// matching interrupt source masked while it touches the buffer.
type RingBuffer struct {
	buf   []byte
	in    int // write cursor
	out   int // read cursor
	empty bool
	full  bool
	lines int
}

// NewRingBuffer returns a ring bound to storage. The capacity is len(storage).
func NewRingBuffer(storage []byte) *RingBuffer {
	rb := &RingBuffer{}
	rb.Init(storage)
	return rb
}

// Init binds storage and resets the ring. It panics on zero-length storage.
func (rb *RingBuffer) Init(storage []byte) {
	if len(storage) == 0 {
		panic("uartx: ring buffer needs capacity >= 1")
	}
	rb.buf = storage
	rb.in = 0
	rb.out = 0
	rb.empty = true
	rb.full = false
	rb.lines = 0
}

// Size returns the total capacity of the buffer in bytes.
func (rb *RingBuffer) Size() int { return len(rb.buf) }

// Used returns how many bytes are currently stored.
func (rb *RingBuffer) Used() int {
	switch {
	case rb.full:
		return len(rb.buf)
	case rb.empty:
		return 0
	case rb.in > rb.out:
		return rb.in - rb.out
	default:
		return len(rb.buf) - rb.out + rb.in
	}
}

// Push stores a byte. If the buffer is already full the byte is discarded and
// Push returns false; nothing else changes.
func (rb *RingBuffer) Push(v byte) bool {
	if rb.full {
		return false
	}
	rb.buf[rb.in] = v
	rb.empty = false
	rb.in++
	if rb.in == len(rb.buf) {
		rb.in = 0
	}
	if v == LineSeparator {
		rb.lines++
	}
	if rb.in == rb.out {
		rb.full = true
	}
	return true
}

// Pop removes the oldest byte. On an empty buffer it returns (0, false) and
// leaves every field untouched.
func (rb *RingBuffer) Pop() (byte, bool) {
	if rb.empty {
		return 0, false
	}
	v := rb.buf[rb.out]
	rb.full = false
	rb.out++
	if rb.out == len(rb.buf) {
		rb.out = 0
	}
	if v == LineSeparator {
		rb.lines--
	}
	if rb.out == rb.in {
		rb.empty = true
	}
	return v, true
}

// Clear discards unread content by moving the read cursor onto the write
// cursor.
//
// The separator count is left as is, so separators discarded here keep being
// reported by LineCount until the ring is re-initialised.
func (rb *RingBuffer) Clear() {
	rb.out = rb.in
	rb.full = false
	rb.empty = true
}

// IsEmpty reports whether the buffer holds no bytes.
func (rb *RingBuffer) IsEmpty() bool { return rb.empty }

// IsFull reports whether the next Push would be discarded.
func (rb *RingBuffer) IsFull() bool { return rb.full }

// LineCount returns the number of buffered LineSeparator bytes.
func (rb *RingBuffer) LineCount() int { return rb.lines }
