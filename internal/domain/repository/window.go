package repository

import (
	"time"

	"BTCWatch/internal/domain/models"
)

// TimeWindow is a fixed display window for the candle chart.
type TimeWindow string

const (
	Window1h  TimeWindow = "1h"
	Window24h TimeWindow = "24h"
	Window7d  TimeWindow = "7d"
	Window30d TimeWindow = "30d"
	Window1y  TimeWindow = "1y"
)

// WindowPlan maps a display window to its raw fetch and aggregation shape.
type WindowPlan struct {
	// Granularity is the width in seconds of one raw upstream bucket.
	Granularity int
	// Lookback is how far back from now the window reaches.
	Lookback time.Duration
	// AggregationFactor is how many consecutive raw candles merge into one
	// displayed candle.
	AggregationFactor int
	// SplitFetch is set when the lookback exceeds the upstream's ~300 row
	// cap and must be stitched from two sub-requests.
	SplitFetch bool
}

const day = 24 * time.Hour

// SplitOldest and SplitNewest are the two stitched sub-ranges of a split
// fetch: the oldest block covers [now-Lookback, now-SplitNewest), the newest
// block covers [now-SplitNewest, now). Each stays under the row cap.
const (
	SplitOldest = 185 * day
	SplitNewest = 180 * day
)

var windowPlans = map[TimeWindow]WindowPlan{
	Window1h:  {Granularity: 300, Lookback: time.Hour, AggregationFactor: 1},
	Window24h: {Granularity: 3600, Lookback: 24 * time.Hour, AggregationFactor: 2},
	Window7d:  {Granularity: 86400, Lookback: 7 * day, AggregationFactor: 1},
	Window30d: {Granularity: 86400, Lookback: 30 * day, AggregationFactor: 2},
	Window1y:  {Granularity: 86400, Lookback: 365 * day, AggregationFactor: 30, SplitFetch: true},
}

// Plan returns the fetch plan for the window.
func (w TimeWindow) Plan() (WindowPlan, error) {
	p, ok := windowPlans[w]
	if !ok {
		return WindowPlan{}, models.ErrInvalidWindow
	}
	return p, nil
}

// ParseWindow converts a raw string to a known window.
func ParseWindow(s string) (TimeWindow, error) {
	w := TimeWindow(s)
	if _, ok := windowPlans[w]; !ok {
		return "", models.ErrInvalidWindow
	}
	return w, nil
}

// Windows lists all supported windows.
func Windows() []TimeWindow {
	return []TimeWindow{Window1h, Window24h, Window7d, Window30d, Window1y}
}
