package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bamsammich/tally/internal/stats"
)

const (
	ansiClearLine    = "\033[K"
	progressInterval = 200 * time.Millisecond
)

// Progress redraws a single walk-status line in place while a scan runs.
// It writes nothing when disabled, so callers can hand it a non-terminal
// writer and still call Stop unconditionally.
type Progress struct {
	w       io.Writer
	stats   *stats.Collector
	width   func() int
	enabled bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// StartProgress begins redrawing the status line from collector counters.
// width is called on each redraw so resizes are picked up; nil means 80
// columns.
func StartProgress(w io.Writer, enabled bool, collector *stats.Collector, width func() int) *Progress {
	if width == nil {
		width = func() int { return 80 }
	}
	p := &Progress{
		w:       w,
		stats:   collector,
		width:   width,
		enabled: enabled,
		done:    make(chan struct{}),
	}
	if !enabled {
		return p
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

func (p *Progress) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.draw()
		}
	}
}

func (p *Progress) draw() {
	snap := p.stats.Snapshot()
	line := fmt.Sprintf("scanning  files %s  dirs %s  %s",
		FormatCount(snap.FilesScanned),
		FormatCount(snap.DirsScanned),
		FormatBytes(snap.BytesScanned))
	// An over-width line wraps and the rewrite stops tracking it.
	if w := p.width(); len(line) >= w {
		line = line[:w-1]
	}
	fmt.Fprintf(p.w, "\r%s%s", ansiClearLine, line)
}

// Stop halts the redraw loop and clears the status line.
func (p *Progress) Stop() {
	if !p.enabled {
		return
	}
	close(p.done)
	p.wg.Wait()
	fmt.Fprintf(p.w, "\r%s", ansiClearLine)
}
