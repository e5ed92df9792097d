// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package pbar

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ostafen/cryptovol/pkg/util/format"
)

// MinRefreshRate bounds how often Render actually redraws the line; callers
// may invoke Render much more often (e.g. after every sector write).
const MinRefreshRate = 25 * time.Millisecond

// FormatState holds the data needed to render a format-operation progress bar.
type FormatState struct {
	Phase              string // "filling", "writing FAT", ...
	TotalBytes         int64
	ProcessedBytes     int64
	StartTime          time.Time
	LastUpdateTime     time.Time
	LastProcessedBytes int64
}

// NewFormatState initializes a new FormatState for a run of totalBytes.
func NewFormatState(phase string, totalBytes int64) *FormatState {
	return &FormatState{
		Phase:          phase,
		TotalBytes:     totalBytes,
		StartTime:      time.Now(),
		LastUpdateTime: time.Unix(0, 0),
	}
}

// Render redraws the progress line, throttled to MinRefreshRate unless force is set.
func (s *FormatState) Render(force bool) {
	if !force && time.Since(s.LastUpdateTime) < MinRefreshRate {
		return
	}

	var percentage float64
	if s.TotalBytes > 0 {
		percentage = float64(s.ProcessedBytes) / float64(s.TotalBytes) * 100
	}

	const barLength = 20
	filledLen := int(float64(barLength) * percentage / 100)
	var bar string
	if filledLen >= barLength {
		bar = strings.Repeat("=", barLength)
	} else {
		bar = strings.Repeat("=", filledLen) + ">" + strings.Repeat(" ", barLength-filledLen-1)
	}

	speed := float64(s.ProcessedBytes-s.LastProcessedBytes) / time.Since(s.LastUpdateTime).Seconds()
	speedMBps := speed / (1024 * 1024)

	var etaStr string
	if s.ProcessedBytes > 0 && speed > 0 {
		remaining := s.TotalBytes - s.ProcessedBytes
		etaSeconds := float64(remaining) / speed
		etaStr = fmt.Sprintf("%02d:%02d:%02d remaining",
			int(etaSeconds/3600), int(etaSeconds/60)%60, int(etaSeconds)%60)
	} else {
		etaStr = "calculating..."
	}

	s.LastUpdateTime = time.Now()
	s.LastProcessedBytes = s.ProcessedBytes

	fmt.Fprintf(os.Stdout, "\r[INFO] %s: [%s] %3.0f%% (%s/%s) @ %.2fMB/s [%s]    ",
		s.Phase,
		bar,
		percentage,
		format.FormatBytes(s.ProcessedBytes),
		format.FormatBytes(s.TotalBytes),
		speedMBps,
		etaStr)

	os.Stdout.Sync()
}

// Finish prints a trailing newline once the operation completes.
func (s *FormatState) Finish() {
	fmt.Println()
}
