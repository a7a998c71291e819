// Package listing reads search-result pages: the detail links on the current
// page and the total page count shown in the pager.
package listing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout-crawler/internal/crawler"
	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

// DefaultOrigin is the site that relative detail URLs resolve against.
const DefaultOrigin = "https://www.jobscout24.ch"

// Selectors locate listing items and the pager.
type Selectors struct {
	ListItem   string `mapstructure:"list_item"`
	IDAttr     string `mapstructure:"id_attr"`
	URLAttr    string `mapstructure:"url_attr"`
	Pagination string `mapstructure:"pagination"`
}

// DefaultSelectors matches the jobscout24.ch results markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ListItem:   "li.job-list-item",
		IDAttr:     "data-job-id",
		URLAttr:    "data-job-detail-url",
		Pagination: ".pagination .pages li",
	}
}

// Harvester collects (job id, detail URL) pairs from the loaded results page.
type Harvester struct {
	sel         Selectors
	origin      *url.URL
	waitTimeout time.Duration
	logger      *zap.Logger
}

// NewHarvester validates origin and constructs a Harvester.
func NewHarvester(sel Selectors, origin string, waitTimeout time.Duration, logger *zap.Logger) (*Harvester, error) {
	if origin == "" {
		origin = DefaultOrigin
	}
	base, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse site origin: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("site origin %q must be absolute", origin)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		sel:         sel,
		origin:      base,
		waitTimeout: session.EffectiveTimeout(waitTimeout),
		logger:      logger.Named("listing"),
	}, nil
}

// CollectJobsOnCurrentPage waits for at least one listing item and returns the
// links in document order. Items missing an id or URL are skipped.
func (h *Harvester) CollectJobsOnCurrentPage(ctx context.Context, sess session.Session) ([]crawler.PageLink, error) {
	if _, err := sess.WaitPresent(ctx, h.sel.ListItem, h.waitTimeout); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: wait for %s: %w", crawler.ErrPageHarvest, h.sel.ListItem, err)
	}
	items, err := sess.FindAll(ctx, h.sel.ListItem)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crawler.ErrPageHarvest, err)
	}
	links := make([]crawler.PageLink, 0, len(items))
	skipped := 0
	for _, item := range items {
		id, okID, err := item.Attr(ctx, h.sel.IDAttr)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", crawler.ErrPageHarvest, h.sel.IDAttr, err)
		}
		href, okURL, err := item.Attr(ctx, h.sel.URLAttr)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", crawler.ErrPageHarvest, h.sel.URLAttr, err)
		}
		id, href = strings.TrimSpace(id), strings.TrimSpace(href)
		if !okID || !okURL || id == "" || href == "" {
			skipped++
			continue
		}
		resolved, err := ResolveURL(h.origin, href)
		if err != nil {
			h.logger.Debug("skipping unparsable detail url", zap.String("href", href), zap.Error(err))
			skipped++
			continue
		}
		links = append(links, crawler.PageLink{JobID: id, DetailURL: resolved})
	}
	if skipped > 0 {
		h.logger.Debug("skipped incomplete listing items", zap.Int("skipped", skipped))
	}
	return links, nil
}

// ResolveURL returns href unchanged when it is absolute and resolves it
// against origin otherwise. A scheme-less "//host/path" stays on origin: it
// is taken as a path, never as a network reference to another host.
func ResolveURL(origin *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	if ref.IsAbs() {
		return href, nil
	}
	if ref.Host != "" {
		return origin.Scheme + "://" + origin.Host + href, nil
	}
	return origin.ResolveReference(ref).String(), nil
}
