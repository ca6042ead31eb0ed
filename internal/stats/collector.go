package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks walk statistics using lock-free atomic counters. The
// snapshot builder's workers all write to one Collector.
type Collector struct {
	filesScanned atomic.Int64
	dirsScanned  atomic.Int64
	linksSkipped atomic.Int64
	bytesScanned atomic.Int64
	startTime    time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) AddFilesScanned(n int64) { c.filesScanned.Add(n) }
func (c *Collector) AddDirsScanned(n int64)  { c.dirsScanned.Add(n) }
func (c *Collector) AddLinksSkipped(n int64) { c.linksSkipped.Add(n) }
func (c *Collector) AddBytesScanned(n int64) { c.bytesScanned.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesScanned int64
	DirsScanned  int64
	LinksSkipped int64
	BytesScanned int64
	Elapsed      time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesScanned: c.filesScanned.Load(),
		DirsScanned:  c.dirsScanned.Load(),
		LinksSkipped: c.linksSkipped.Load(),
		BytesScanned: c.bytesScanned.Load(),
		Elapsed:      c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"files=%d dirs=%d links_skipped=%d bytes=%d",
		s.FilesScanned, s.DirsScanned, s.LinksSkipped, s.BytesScanned,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
