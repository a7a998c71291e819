// Package progress defines the event structures emitted by the crawl engine.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageRunDone   Stage = "RUN_DONE"
	StageRunError  Stage = "RUN_ERROR"
	StagePageStart Stage = "PAGE_START"
	StagePageDone  Stage = "PAGE_DONE"
	StagePageError Stage = "PAGE_ERROR"
	StageItemDone  Stage = "ITEM_DONE"
	StageItemError Stage = "ITEM_ERROR"
)

// Event captures a single milestone of a crawl run.
type Event struct {
	// RunID identifies the run that produced the event.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Page is the 1-based results page for page and item events.
	Page int
	// URL is the results or detail page URL.
	URL string
	// JobID is set on item events.
	JobID string
	// Items carries the number of links harvested (PAGE_DONE) or records
	// collected (RUN_DONE).
	Items int
	// Dur captures latency for items and whole runs.
	Dur time.Duration
	// Note lets emitters attach low-volume context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StagePageStart, StagePageDone, StagePageError:
		if e.Page < 1 {
			return errors.New("page events require a page number")
		}
	case StageItemDone, StageItemError:
		if e.URL == "" {
			return errors.New("item events require a url")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	if e.Items < 0 {
		return errors.New("items must be >= 0")
	}
	return nil
}
