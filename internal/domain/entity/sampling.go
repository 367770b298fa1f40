package entity

import (
	"fmt"
	"math"
)

// SampleTimestamps returns every multiple of interval in [0, floor(duration)).
func SampleTimestamps(duration float64, interval int) []int {
	if interval < 1 || duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil
	}

	end := int(math.Floor(duration))
	timestamps := make([]int, 0, (end+interval-1)/interval)
	for t := 0; t < end; t += interval {
		timestamps = append(timestamps, t)
	}
	return timestamps
}

// FormatTimestamp renders seconds as HH-MM-SS.
func FormatTimestamp(seconds int) string {
	return fmt.Sprintf("%02d-%02d-%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// FrameFileName names the index-th frame (1-based) sampled at timestamp seconds.
func FrameFileName(timestamp, index int, format OutputFormat) string {
	return fmt.Sprintf("frame_%s_%04d.%s", FormatTimestamp(timestamp), index, format.Extension())
}
