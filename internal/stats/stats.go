// Package stats derives display statistics from an item's price history.
// Everything here is a pure function recomputed from a full snapshot;
// history volume per item is small, so nothing is cached or incremental.
package stats

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jardens/pricebasket/internal/model"
)

// ErrNoHistory signals that an item has no price observations at all, as
// opposed to statistics that happen to be zero.
var ErrNoHistory = errors.New("no price history")

// Trend is the at-a-glance direction of the two most recent observations.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendNone Trend = "none"
)

// Summary holds the derived statistics for one item's history.
type Summary struct {
	Lowest        decimal.Decimal `json:"lowestPrice"`
	Highest       decimal.Decimal `json:"highestPrice"`
	Average       decimal.Decimal `json:"averagePrice"`
	Latest        decimal.Decimal `json:"latestPrice"`
	Previous      decimal.Decimal `json:"previousPrice"`
	Change        decimal.Decimal `json:"priceChange"`
	PercentChange decimal.Decimal `json:"percentChange"`
}

// byDateDesc returns a copy of history sorted most-recent-first. Stored
// order is insertion order and cannot be trusted to be chronological.
func byDateDesc(history []model.PriceEntry) []model.PriceEntry {
	sorted := make([]model.PriceEntry, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})
	return sorted
}

// Summarize computes min/max/mean over every entry (duplicates included)
// and the latest-vs-previous delta. A single-entry history yields zero
// change; an empty history yields ErrNoHistory.
func Summarize(history []model.PriceEntry) (Summary, error) {
	if len(history) == 0 {
		return Summary{}, ErrNoHistory
	}

	lowest := history[0].Price
	highest := history[0].Price
	sum := decimal.Zero
	for _, e := range history {
		if e.Price.LessThan(lowest) {
			lowest = e.Price
		}
		if e.Price.GreaterThan(highest) {
			highest = e.Price
		}
		sum = sum.Add(e.Price)
	}
	average := sum.Div(decimal.NewFromInt(int64(len(history))))

	sorted := byDateDesc(history)
	latest := sorted[0].Price
	previous := latest
	if len(sorted) > 1 {
		previous = sorted[1].Price
	}
	change := latest.Sub(previous)
	percent := decimal.Zero
	if !previous.IsZero() {
		percent = change.Div(previous).Mul(decimal.NewFromInt(100))
	}

	return Summary{
		Lowest:        lowest,
		Highest:       highest,
		Average:       average,
		Latest:        latest,
		Previous:      previous,
		Change:        change,
		PercentChange: percent,
	}, nil
}

// TrendOf reports the direction between the two most recent entries.
// Fewer than two entries, or two equal prices, is TrendNone.
func TrendOf(history []model.PriceEntry) Trend {
	if len(history) < 2 {
		return TrendNone
	}
	sorted := byDateDesc(history)
	latest, previous := sorted[0].Price, sorted[1].Price
	switch {
	case latest.LessThan(previous):
		return TrendDown
	case latest.GreaterThan(previous):
		return TrendUp
	default:
		return TrendNone
	}
}

// SeriesPoint is one charted calendar date with the price each store
// observed on that date, keyed by store name.
type SeriesPoint struct {
	Date      string                     `json:"date"`
	Timestamp int64                      `json:"timestamp"`
	Prices    map[string]decimal.Decimal `json:"prices"`
}

const chartDateLayout = "Jan 02, 2006"

// ChartSeries groups history into one point per calendar date. Multiple
// entries for the same store on the same date collapse to the later write
// in insertion order. Entries for deleted stores are dropped from the
// chart: their name lookup fails, and that is accepted behavior.
func ChartSeries(history []model.PriceEntry, stores []model.Store) []SeriesPoint {
	names := make(map[string]string, len(stores))
	for _, s := range stores {
		names[s.ID] = s.Name
	}

	byDate := make(map[string]*SeriesPoint)
	for _, e := range history {
		key := time.UnixMilli(e.Date).Format(chartDateLayout)
		p, ok := byDate[key]
		if !ok {
			p = &SeriesPoint{
				Date:      key,
				Timestamp: e.Date,
				Prices:    map[string]decimal.Decimal{},
			}
			byDate[key] = p
		}
		if name, ok := names[e.StoreID]; ok {
			p.Prices[name] = e.Price
		}
	}

	points := make([]SeriesPoint, 0, len(byDate))
	for _, p := range byDate {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
	return points
}

// PriceRange finds the lowest and highest current price across an item's
// per-store map, used to highlight the cheapest and dearest store. ok is
// false for an empty map: no prices means no highlighting.
func PriceRange(prices map[string]decimal.Decimal) (lowest, highest decimal.Decimal, ok bool) {
	for _, p := range prices {
		if !ok {
			lowest, highest, ok = p, p, true
			continue
		}
		if p.LessThan(lowest) {
			lowest = p
		}
		if p.GreaterThan(highest) {
			highest = p
		}
	}
	return lowest, highest, ok
}
