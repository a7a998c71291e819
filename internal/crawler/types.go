package crawler

import "time"

// JobRecord is one scraped listing. Optional data attributes are nil when the
// detail page does not carry them.
type JobRecord struct {
	JobID          string  `json:"job_id"`
	Title          string  `json:"title"`
	Company        string  `json:"company"`
	PublishingDate *string `json:"publishing_date"`
	Quota          *string `json:"quota"`
	Location       *string `json:"location"`
	URL            string  `json:"url"`
}

// PageLink is a (job id, detail URL) pair harvested from a results page.
type PageLink struct {
	JobID     string
	DetailURL string
}

// RunParams describes a single crawl run.
type RunParams struct {
	RunID             string
	BaseURL           string
	MaxPages          int // 0 means every discovered page
	DelayBetweenJobs  time.Duration
	DelayBetweenPages time.Duration
}

// Result is the accumulated output of a run plus its counters.
type Result struct {
	Records        []JobRecord
	PagesTotal     int
	PagesProcessed int
	PagesFailed    int
	ItemsScraped   int
	ItemsFailed    int
}

// RunSummary is the user-visible outcome of a run. It is logged by the CLI and
// published when a notification topic is configured.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	BaseURL        string    `json:"base_url"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	PagesTotal     int       `json:"pages_total"`
	PagesProcessed int       `json:"pages_processed"`
	PagesFailed    int       `json:"pages_failed"`
	ItemsScraped   int       `json:"items_scraped"`
	ItemsFailed    int       `json:"items_failed"`
	Output         string    `json:"output,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Summarize builds a RunSummary from the result of a run.
func (r Result) Summarize(params RunParams, started, finished time.Time) RunSummary {
	return RunSummary{
		RunID:          params.RunID,
		BaseURL:        params.BaseURL,
		StartedAt:      started,
		FinishedAt:     finished,
		PagesTotal:     r.PagesTotal,
		PagesProcessed: r.PagesProcessed,
		PagesFailed:    r.PagesFailed,
		ItemsScraped:   r.ItemsScraped,
		ItemsFailed:    r.ItemsFailed,
	}
}
