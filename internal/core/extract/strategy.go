package extract

import (
	"fmt"
	"time"

	"github.com/glassflow/shopify-shops-etl/internal/core/timeparse"
)

// Strategy decides how many extraction passes a run makes and which
// extraction timestamp each pass carries.
type Strategy string

const (
	// StrategySnapshot makes a single pass stamped with the run time.
	StrategySnapshot Strategy = "snapshot"
	// StrategyDaily makes one pass per day from the start day up to today.
	// Past days are stamped with their midnight, today with the run time.
	// Every pass scrapes the storefronts as they are now, so past windows
	// hold re-stamped copies of the current metadata, not what the shop
	// looked like on that day. Each pass costs one request per domain.
	StrategyDaily Strategy = "daily"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySnapshot, StrategyDaily:
		return Strategy(s), nil
	case "":
		return StrategySnapshot, nil
	default:
		return "", fmt.Errorf("unknown extraction strategy %q", s)
	}
}

// Windows returns the extraction timestamps of a run, in order. Days are
// counted in the parser's location. The result always ends with now.
func (s Strategy) Windows(start, now time.Time, p *timeparse.Parser) []time.Time {
	if s != StrategyDaily {
		return []time.Time{now}
	}

	today := p.StartOfDay(now)

	var windows []time.Time
	for day := p.StartOfDay(start); day.Before(today); day = day.AddDate(0, 0, 1) {
		windows = append(windows, day)
	}

	return append(windows, now)
}
