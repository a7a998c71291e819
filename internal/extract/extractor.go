// Package extract turns a loaded job detail page into a crawler.JobRecord.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout-crawler/internal/crawler"
	"github.com/JakeFAU/jobscout-crawler/internal/normalize"
	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

// Selectors locate the fields of a detail page.
type Selectors struct {
	Container    string   `mapstructure:"container"`
	TitleChain   []string `mapstructure:"title_chain"`
	Company      string   `mapstructure:"company"`
	PubDateAttr  string   `mapstructure:"pub_date_attr"`
	QuotaAttr    string   `mapstructure:"quota_attr"`
	LocationAttr string   `mapstructure:"location_attr"`
}

// DefaultSelectors matches the jobscout24.ch detail markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:    "article.job-details",
		TitleChain:   []string{".header-title h2", ".header-title h1", "h1"},
		Company:      ".company-title",
		PubDateAttr:  "data-pub-date",
		QuotaAttr:    "data-employment-grade",
		LocationAttr: "data-job-location",
	}
}

// Extractor scrapes detail pages. It holds no per-page state.
type Extractor struct {
	sel         Selectors
	title       []Strategy
	waitTimeout time.Duration
	logger      *zap.Logger
}

// New constructs an Extractor. A zero waitTimeout uses session.DefaultWaitTimeout.
func New(sel Selectors, waitTimeout time.Duration, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		sel:         sel,
		title:       Chain(sel.TitleChain...),
		waitTimeout: session.EffectiveTimeout(waitTimeout),
		logger:      logger.Named("extract"),
	}
}

// ScrapeJobDetail navigates sess to rawURL and reads the job fields off the
// detail container. The returned record carries no JobID; the caller attaches
// the one harvested from the listing.
func (e *Extractor) ScrapeJobDetail(ctx context.Context, sess session.Session, rawURL string) (crawler.JobRecord, error) {
	if err := sess.Navigate(ctx, rawURL); err != nil {
		return crawler.JobRecord{}, fmt.Errorf("navigate detail page: %w", err)
	}
	container, err := sess.WaitPresent(ctx, e.sel.Container, e.waitTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return crawler.JobRecord{}, ctxErr
		}
		return crawler.JobRecord{}, fmt.Errorf("%w: %s: %w", crawler.ErrExtractionTimeout, e.sel.Container, err)
	}

	title, ok, err := FirstMatch(ctx, container, e.title)
	if err != nil {
		return crawler.JobRecord{}, fmt.Errorf("resolve title: %w", err)
	}
	if !ok {
		return crawler.JobRecord{}, fmt.Errorf("%w: %s", crawler.ErrTitleNotFound, rawURL)
	}

	company, _, err := SelectorText(e.sel.Company).Resolve(ctx, container)
	if err != nil {
		return crawler.JobRecord{}, fmt.Errorf("resolve company: %w", err)
	}

	record := crawler.JobRecord{
		Title:   title,
		Company: company,
		URL:     rawURL,
	}
	if record.PublishingDate, err = optionalAttr(ctx, container, e.sel.PubDateAttr); err != nil {
		return crawler.JobRecord{}, err
	}
	quota, err := optionalAttr(ctx, container, e.sel.QuotaAttr)
	if err != nil {
		return crawler.JobRecord{}, err
	}
	record.Quota = normalize.CleanQuota(quota)
	if record.Location, err = optionalAttr(ctx, container, e.sel.LocationAttr); err != nil {
		return crawler.JobRecord{}, err
	}

	e.logger.Debug("scraped detail page", zap.String("url", rawURL), zap.String("title", title))
	return record, nil
}

func optionalAttr(ctx context.Context, el session.Element, name string) (*string, error) {
	if name == "" {
		return nil, nil
	}
	value, ok, err := el.Attr(ctx, name)
	if err != nil {
		if errors.Is(err, session.ErrNoSuchElement) {
			return nil, nil
		}
		return nil, fmt.Errorf("read attribute %s: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	return normalize.Ptr(value), nil
}
