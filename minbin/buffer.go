package minbin

// Buffer is the growable output buffer an Encoder appends to. Each
// Encoder owns its Buffer exclusively for the duration of one encode
// pass; nothing is shared between instances.
type Buffer struct {
	buf []byte
}

// NewBuffer creates an empty buffer with a small default capacity.
func NewBuffer() *Buffer {
	return &Buffer{buf: make([]byte, 0, 64)}
}

// NewBufferSize creates an empty buffer with the given capacity hint.
func NewBufferSize(n int) *Buffer {
	if n < 0 {
		n = 0
	}
	return &Buffer{buf: make([]byte, 0, n)}
}

// Bytes returns the encoded bytes. The slice aliases the buffer's
// backing array and is invalidated by further writes.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.buf) }

// Reset truncates the buffer to zero length, keeping capacity.
func (b *Buffer) Reset() { b.buf = b.buf[:0] }

func (b *Buffer) writeByte(c byte) { b.buf = append(b.buf, c) }

func (b *Buffer) write(p []byte) { b.buf = append(b.buf, p...) }

func (b *Buffer) writeString(s string) { b.buf = append(b.buf, s...) }

// Cursor is a bounds-checked read position over one input slice. Every
// read either returns the requested bytes or fails with ErrTruncated;
// a Cursor never reads past the end and never panics on short input.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor creates a cursor over data. The cursor does not copy data;
// the caller must not mutate it during the decode pass.
func NewCursor(data []byte) *Cursor {
	return &Cursor{buf: data}
}

// Offset returns the current byte offset from the start of the input.
func (c *Cursor) Offset() int { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// ReadByte returns the next byte, or ErrTruncated.
func (c *Cursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, ErrTruncated
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// ReadN returns the next n bytes without copying, or ErrTruncated.
func (c *Cursor) ReadN(n int) ([]byte, error) {
	if n < 0 || n > len(c.buf)-c.pos {
		return nil, ErrTruncated
	}
	p := c.buf[c.pos : c.pos+n]
	c.pos += n
	return p, nil
}
