package calculator

// SMAWindow is a trailing simple moving average kept as a running sum over a
// preallocated ring buffer, so each Push is O(1).
type SMAWindow struct {
	period int
	buf    []float64
	idx    int // next write position
	count  int // values received
	sum    float64
}

// NewSMAWindow creates a window of the given period. period must be >= 1.
func NewSMAWindow(period int) *SMAWindow {
	return &SMAWindow{
		period: period,
		buf:    make([]float64, period),
	}
}

// Push adds v and returns the mean of the last period values. ready is false
// until period values have been pushed.
func (w *SMAWindow) Push(v float64) (mean float64, ready bool) {
	if w.count >= w.period {
		w.sum -= w.buf[w.idx]
	}
	w.buf[w.idx] = v
	w.sum += v
	w.idx = (w.idx + 1) % w.period
	w.count++

	if w.count < w.period {
		return 0, false
	}
	return w.sum / float64(w.period), true
}

// Ready reports whether a full window has accumulated.
func (w *SMAWindow) Ready() bool { return w.count >= w.period }
