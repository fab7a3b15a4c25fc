package pipeline

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// Observer receives advisory progress. total is 0 when unknown.
type Observer interface {
	Report(pos, total int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(pos, total int)

// Report calls f.
func (f ObserverFunc) Report(pos, total int) { f(pos, total) }

// Percent returns pos as a percentage of total. ok is false when total is
// unknown (zero or negative).
func Percent(pos, total int) (pct float64, ok bool) {
	if total <= 0 {
		return 0, false
	}
	return 100 * float64(pos) / float64(total), true
}

// Printer writes "progress: 12.34%" lines, at most once per interval. The
// first report and the final one (pos == total) are always written.
type Printer struct {
	w         io.Writer
	sometimes rate.Sometimes
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, interval time.Duration) *Printer {
	return &Printer{w: w, sometimes: rate.Sometimes{First: 1, Interval: interval}}
}

// Report implements Observer.
func (p *Printer) Report(pos, total int) {
	if total > 0 && pos == total {
		p.print(pos, total)
		return
	}
	p.sometimes.Do(func() { p.print(pos, total) })
}

func (p *Printer) print(pos, total int) {
	if pct, ok := Percent(pos, total); ok {
		fmt.Fprintf(p.w, "progress: %.2f%%\n", pct)
		return
	}
	fmt.Fprintf(p.w, "progress: %d items\n", pos)
}
