package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Progress reports completion of a fixed number of steps, such as
// walk-forward windows. On a terminal it redraws a bar in place; otherwise
// each step is logged as a structured event.
type Progress struct {
	mu        sync.Mutex
	name      string
	total     int
	current   int
	startTime time.Time
	out       io.Writer
	barWidth  int
}

// NewProgress creates a progress reporter. A nil out logs every step
// instead of drawing a bar.
func NewProgress(name string, total int, out io.Writer) *Progress {
	return &Progress{
		name:      name,
		total:     total,
		startTime: time.Now(),
		out:       out,
		barWidth:  20,
	}
}

// Step advances progress by one and attaches message to the update
func (p *Progress) Step(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if p.out == nil {
		log.Info().
			Str("stage", p.name).
			Int("step", p.current).
			Int("total", p.total).
			Msg(message)
		return
	}
	fmt.Fprint(p.out, p.render(message))
}

// Current returns the number of completed steps
func (p *Progress) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish completes the progress line and logs the elapsed time
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	if p.out != nil {
		fmt.Fprintf(p.out, "\r\033[K%s completed (%d/%d, %v)\n", p.name, p.current, p.total, elapsed.Round(time.Millisecond))
	}
	log.Info().
		Str("stage", p.name).
		Int("steps", p.current).
		Dur("elapsed", elapsed).
		Msg("Stage completed")
}

func (p *Progress) render(message string) string {
	var b strings.Builder

	b.WriteString("\r\033[K")
	b.WriteString(p.name)

	if p.total > 0 {
		filled := p.barWidth * min(p.current, p.total) / p.total
		b.WriteString(" [")
		b.WriteString(strings.Repeat("█", filled))
		b.WriteString(strings.Repeat("░", p.barWidth-filled))
		fmt.Fprintf(&b, "] %d/%d (%.1f%%)", p.current, p.total, float64(p.current)/float64(p.total)*100)

		if p.current > 0 && p.current < p.total {
			elapsed := time.Since(p.startTime)
			eta := time.Duration(float64(elapsed) / float64(p.current) * float64(p.total-p.current))
			fmt.Fprintf(&b, " ETA: %v", eta.Round(time.Second))
		}
	}

	if message != "" {
		b.WriteString(" - ")
		b.WriteString(message)
	}

	return b.String()
}
