package report

import (
	"math"
	"time"
)

// SeriesPoint is one day of a metric's daily series; Value is nil on days
// without an entry.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// Trend labels.
const (
	TrendUp           = "up"
	TrendDown         = "down"
	TrendFlat         = "flat"
	TrendVolatile     = "volatile"
	TrendInsufficient = "insufficient"
)

// Heuristic constants for the deterministic detectors.
const (
	trendDelta          = 0.5
	volatilityThreshold = 1.1
	correlationMin      = 0.4
	correlationStrong   = 0.6
	anomalySigma        = 1.5
	keywordEffectMin    = 0.6
)

func nonNilValues(points []SeriesPoint) []float64 {
	var vals []float64
	for _, p := range points {
		if p.Value != nil {
			vals = append(vals, *p.Value)
		}
	}
	return vals
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	ss := 0.0
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Trend compares the mean of the first up-to-3 non-nil points against the
// mean of the last up-to-3; fewer than 3 non-nil points is insufficient.
func Trend(points []SeriesPoint) string {
	vals := nonNilValues(points)
	if len(vals) < 3 {
		return TrendInsufficient
	}
	head := vals[:min(3, len(vals))]
	tail := vals[max(0, len(vals)-3):]
	delta := mean(tail) - mean(head)
	switch {
	case delta > trendDelta:
		return TrendUp
	case delta < -trendDelta:
		return TrendDown
	case stdDev(vals) >= volatilityThreshold:
		return TrendVolatile
	default:
		return TrendFlat
	}
}

// PearsonPaired computes the Pearson correlation over days where both series
// have a value. Returns the coefficient and the paired sample count.
func PearsonPaired(a, b []SeriesPoint) (float64, int) {
	n := min(len(a), len(b))
	var xs, ys []float64
	for i := 0; i < n; i++ {
		if a[i].Value != nil && b[i].Value != nil {
			xs = append(xs, *a[i].Value)
			ys = append(ys, *b[i].Value)
		}
	}
	if len(xs) < 3 {
		return 0, len(xs)
	}
	mx, my := mean(xs), mean(ys)
	var num, dx2, dy2 float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		num += dx * dy
		dx2 += dx * dx
		dy2 += dy * dy
	}
	if dx2 == 0 || dy2 == 0 {
		return 0, len(xs)
	}
	return num / math.Sqrt(dx2*dy2), len(xs)
}

// Anomaly is a day whose value deviates from the series mean by more than
// anomalySigma standard deviations.
type Anomaly struct {
	Date  time.Time
	Value float64
	Delta float64
}

// Anomalies requires at least 4 non-nil points; with less data the series
// mean is too unstable to call anything an outlier.
func Anomalies(points []SeriesPoint) []Anomaly {
	vals := nonNilValues(points)
	if len(vals) < 4 {
		return nil
	}
	m := mean(vals)
	sd := stdDev(vals)
	if sd == 0 {
		return nil
	}
	var out []Anomaly
	for _, p := range points {
		if p.Value == nil {
			continue
		}
		delta := *p.Value - m
		if math.Abs(delta) > anomalySigma*sd {
			out = append(out, Anomaly{Date: p.Date, Value: *p.Value, Delta: delta})
		}
	}
	return out
}

// Streaks returns the longest and current runs of consecutive days with an
// entry, over a presence series (nil value means no entry that day).
func Streaks(points []SeriesPoint) (longest, current int) {
	run := 0
	for _, p := range points {
		if p.Value != nil {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	current = run
	return longest, current
}

// BiggestSwing finds the adjacent-day pair with the largest absolute delta;
// both days must have values.
func BiggestSwing(points []SeriesPoint) (from, to SeriesPoint, delta float64, ok bool) {
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if a.Value == nil || b.Value == nil {
			continue
		}
		d := *b.Value - *a.Value
		if !ok || math.Abs(d) > math.Abs(delta) {
			from, to, delta, ok = a, b, d, true
		}
	}
	return from, to, delta, ok
}
