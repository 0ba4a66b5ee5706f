package status

// ring is a fixed-capacity FIFO that evicts the oldest entry on overflow.
type ring struct {
	buf   []Entry
	start int
	size  int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &ring{buf: make([]Entry, capacity)}
}

func (r *ring) push(e Entry) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = e
		r.size++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// items returns a copy ordered oldest to newest.
func (r *ring) items() []Entry {
	out := make([]Entry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
