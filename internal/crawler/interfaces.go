package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

// DetailExtractor turns a detail page into a JobRecord.
type DetailExtractor interface {
	ScrapeJobDetail(ctx context.Context, sess session.Session, rawURL string) (JobRecord, error)
}

// Harvester collects detail links from the loaded results page.
type Harvester interface {
	CollectJobsOnCurrentPage(ctx context.Context, sess session.Session) ([]PageLink, error)
}

// PageCounter reads the total number of result pages from the loaded first page.
type PageCounter interface {
	TotalPages(ctx context.Context, sess session.Session) int
}

// Pauser sleeps between requests.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
