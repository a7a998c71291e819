package listing

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

// DefaultPageToken is the word preceding the "n / total" pager text.
const DefaultPageToken = "Seite"

// PaginationResolver reads the total page count from the pager.
type PaginationResolver struct {
	selector string
	pattern  *regexp.Regexp
	logger   *zap.Logger
}

// NewPaginationResolver compiles the pager pattern for token (e.g. "Seite").
func NewPaginationResolver(selector, token string, logger *zap.Logger) (*PaginationResolver, error) {
	if token == "" {
		token = DefaultPageToken
	}
	pattern, err := regexp.Compile(regexp.QuoteMeta(token) + `\s+\d+\s*/\s*(\d+)`)
	if err != nil {
		return nil, fmt.Errorf("compile pagination pattern: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaginationResolver{selector: selector, pattern: pattern, logger: logger.Named("pagination")}, nil
}

// TotalPages returns the page count, falling back to 1 whenever the pager is
// missing or unreadable.
func (p *PaginationResolver) TotalPages(ctx context.Context, sess session.Session) int {
	el, err := sess.Find(ctx, p.selector)
	if err != nil {
		p.logger.Debug("pager not found, assuming a single page", zap.Error(err))
		return 1
	}
	text, err := el.Text(ctx)
	if err != nil {
		p.logger.Debug("pager text unreadable, assuming a single page", zap.Error(err))
		return 1
	}
	return p.Parse(text)
}

// Parse extracts the total from pager text such as "Seite 1 / 100".
func (p *PaginationResolver) Parse(text string) int {
	m := p.pattern.FindStringSubmatch(text)
	if m == nil {
		return 1
	}
	total, err := strconv.Atoi(m[1])
	if err != nil || total < 1 {
		return 1
	}
	return total
}
