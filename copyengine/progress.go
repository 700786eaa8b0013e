package copyengine

import (
	"sync"
	"time"
)

// progressReporter implements §4.1's progress sampling rules:
// instantaneous speed over the interval since the last sample, smoothed
// speed via smoothed <- 0.9*instant + 0.1*smoothed (first sample adopts
// instant directly), throttled to at most one sample per progressMinGap,
// with a guaranteed final 100% sample.
type progressReporter struct {
	mu           sync.Mutex
	totalBytes   int64
	lastSampleAt time.Time
	lastBytes    int64
	smoothed     float64
	haveSample   bool
	onProgress   func(Progress)
}

func newProgressReporter(totalBytes int64, onProgress func(Progress)) *progressReporter {
	return &progressReporter{
		totalBytes:   totalBytes,
		lastSampleAt: time.Now(),
		onProgress:   onProgress,
	}
}

// update is called by a strategy after writing transferredBytes total (not
// a delta). It throttles to progressMinGap unless force is set.
func (r *progressReporter) update(transferredBytes int64, force bool) {
	if r.onProgress == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastSampleAt)
	if !force && elapsed < progressMinGap {
		return
	}

	deltaBytes := transferredBytes - r.lastBytes
	instant := 0.0
	if elapsed > 0 {
		instant = float64(deltaBytes) / elapsed.Seconds()
	}
	if !r.haveSample {
		r.smoothed = instant
		r.haveSample = true
	} else {
		r.smoothed = 0.9*instant + 0.1*r.smoothed
	}

	var eta float64
	if r.smoothed > 0 {
		eta = float64(r.totalBytes-transferredBytes) / r.smoothed
	}

	r.lastSampleAt = now
	r.lastBytes = transferredBytes

	r.onProgress(Progress{
		TransferredBytes:         transferredBytes,
		TotalBytes:               r.totalBytes,
		InstantaneousBytesPerSec: instant,
		SmoothedBytesPerSec:      r.smoothed,
		ETASeconds:               eta,
	})
}

// final emits the mandatory 100%-with-zero-speed sample before Completed.
func (r *progressReporter) final() {
	if r.onProgress == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onProgress(Progress{
		TransferredBytes:         r.totalBytes,
		TotalBytes:               r.totalBytes,
		InstantaneousBytesPerSec: 0,
		SmoothedBytesPerSec:      0,
		ETASeconds:               0,
	})
}
