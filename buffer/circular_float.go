package buffer

// CircularFloat is a circular buffer of float64s with the ability to
// iterate over the first and second halves in the order they were
// appended. Holds IJGP's and JGLP's per-sweep logZ history and the
// sampler package's peak-marginal trace.
type CircularFloat struct {
	buffer    []float64
	pos       int
	BufSize   int
	Count     int
	TotalSeen int64
}

// NewCircularFloat creates a new circular buffer of totalSize. If
// totalSize is not a multiple of 2, it will be adjusted.
func NewCircularFloat(totalSize int) *CircularFloat {
	half := totalSize / 2
	total := half + half

	return &CircularFloat{
		buffer:  make([]float64, total),
		pos:     0,
		BufSize: total,
		Count:   0,
	}
}

func (c *CircularFloat) nextPos() int {
	return (c.pos + 1) % c.BufSize
}

// Add appends f to the buffer, overwriting the oldest entry.
func (c *CircularFloat) Add(f float64) error {
	c.TotalSeen++

	c.buffer[c.pos] = f
	c.pos = c.nextPos()

	c.Count++
	if c.Count > c.BufSize {
		c.Count = c.BufSize
	}

	return nil
}

// Last returns the most recently added value and whether one exists.
func (c *CircularFloat) Last() (float64, bool) {
	if c.Count < 1 {
		return 0, false
	}
	idx := (c.pos - 1 + c.BufSize) % c.BufSize
	return c.buffer[idx], true
}

// FirstHalf returns an iterator over the first (oldest) half of the
// stored values. Will not return a valid iterator until Add has been
// called at least BufSize times.
func (c *CircularFloat) FirstHalf() *CircularFloatIterator {
	if c.Count < c.BufSize {
		return nil
	}

	return &CircularFloatIterator{
		buf:    c,
		curr:   c.pos,
		remain: c.BufSize / 2,
	}
}

// SecondHalf returns an iterator over the second (most recent) half of
// the stored values. Will not return a valid iterator until Add has been
// called at least BufSize times.
func (c *CircularFloat) SecondHalf() *CircularFloatIterator {
	if c.Count < c.BufSize {
		return nil
	}

	half := c.BufSize / 2
	pos := (c.pos + half) % c.BufSize

	return &CircularFloatIterator{
		buf:    c,
		curr:   pos,
		remain: half,
	}
}

// CircularFloatIterator provides an iterator over a CircularFloat buffer.
type CircularFloatIterator struct {
	buf    *CircularFloat
	curr   int
	remain int
}

// Next returns true when there are more values to read via Value.
func (i *CircularFloatIterator) Next() bool {
	return i.remain > 0
}

// Value returns the next float to be read. Only call when Next() is true.
func (i *CircularFloatIterator) Value() float64 {
	v := i.buf.buffer[i.curr]
	i.curr = (i.curr + 1) % i.buf.BufSize
	i.remain--
	return v
}
