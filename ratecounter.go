// ratecounter.go
package qmeasure

import "github.com/montanaflynn/stats"

// Bucket and window sizes are fixed: the meter trades responsiveness for a
// stable reading, which is what a display needs.
const (
	rateBucketDuration  = 0.5
	rateAveragingWindow = 2.0
)

type rateBucket struct {
	duration float64
	count    int
}

/*
RateCounter maintains a rolling, time-bucketed count of discrete events
and reports a smoothed events-per-second value averaged over a fixed
window. Events land in the current half-second bucket; at each bucket
boundary the completed bucket is pushed and buckets older than the
averaging window are dropped. The reported rate is therefore slightly
delayed, acceptable for a display meter, not a precision measurement.
*/
type RateCounter struct {
	current int
	elapsed float64
	buckets []rateBucket

	// TotalCount accumulates every event ever counted, for cumulative
	// detector displays alongside the smoothed rate.
	TotalCount int64
}

func NewRateCounter() *RateCounter {
	return &RateCounter{}
}

// CountEvent records n events in the current bucket.
func (rc *RateCounter) CountEvent(n int) {
	rc.current += n
	rc.TotalCount += int64(n)
}

// Step advances the meter's sense of time, closing buckets as boundaries
// pass.
func (rc *RateCounter) Step(dt float64) {
	rc.elapsed += dt
	for rc.elapsed >= rateBucketDuration {
		rc.elapsed -= rateBucketDuration
		rc.buckets = append(rc.buckets, rateBucket{
			duration: rateBucketDuration,
			count:    rc.current,
		})
		rc.current = 0
		rc.trim()
	}
}

// trim drops buckets that can no longer contribute to the averaging
// window, walking newest-first.
func (rc *RateCounter) trim() {
	covered := 0.0
	for i := len(rc.buckets) - 1; i >= 0; i-- {
		if covered >= rateAveragingWindow {
			rc.buckets = rc.buckets[i+1:]
			return
		}
		covered += rc.buckets[i].duration
	}
}

/*
Rate returns the smoothed events-per-second value: completed buckets are
accumulated newest-first until their combined duration covers the
averaging window (or all buckets are consumed, early in the meter's life),
and the rate is the accumulated count over the actual covered duration.
Zero until the first bucket completes.
*/
func (rc *RateCounter) Rate() float64 {
	duration := 0.0
	count := 0
	for i := len(rc.buckets) - 1; i >= 0; i-- {
		duration += rc.buckets[i].duration
		count += rc.buckets[i].count
		if duration >= rateAveragingWindow {
			break
		}
	}
	if duration == 0 {
		return 0
	}
	return float64(count) / duration
}

// BucketStats summarizes the retained bucket counts for display meters
// that show spread as well as level.
func (rc *RateCounter) BucketStats() (mean, max float64, err error) {
	if len(rc.buckets) == 0 {
		return 0, 0, nil
	}
	counts := make([]float64, len(rc.buckets))
	for i, b := range rc.buckets {
		counts[i] = float64(b.count)
	}
	if mean, err = stats.Mean(counts); err != nil {
		return 0, 0, err
	}
	if max, err = stats.Max(counts); err != nil {
		return 0, 0, err
	}
	return mean, max, nil
}

// Reset clears all buckets and accumulated counts.
func (rc *RateCounter) Reset() {
	rc.current = 0
	rc.elapsed = 0
	rc.buckets = nil
	rc.TotalCount = 0
}
