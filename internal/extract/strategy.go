package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/jobscout-crawler/internal/normalize"
	"github.com/JakeFAU/jobscout-crawler/internal/session"
)

// Strategy resolves a text value beneath root. ok is false when the strategy
// found nothing usable; err is reserved for engine failures.
type Strategy interface {
	Resolve(ctx context.Context, root session.Element) (value string, ok bool, err error)
}

// SelectorText resolves to the cleaned text of the first element matching the
// selector. A present element with blank text does not count as a match.
type SelectorText string

// Resolve implements Strategy.
func (s SelectorText) Resolve(ctx context.Context, root session.Element) (string, bool, error) {
	el, err := root.Find(ctx, string(s))
	if errors.Is(err, session.ErrNoSuchElement) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find %q: %w", string(s), err)
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", false, fmt.Errorf("text of %q: %w", string(s), err)
	}
	text = normalize.CleanText(text)
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

// Chain builds an ordered strategy list from selectors.
func Chain(selectors ...string) []Strategy {
	out := make([]Strategy, 0, len(selectors))
	for _, sel := range selectors {
		out = append(out, SelectorText(sel))
	}
	return out
}

// FirstMatch runs the strategies in order and returns the first hit.
func FirstMatch(ctx context.Context, root session.Element, chain []Strategy) (string, bool, error) {
	for _, strategy := range chain {
		value, ok, err := strategy.Resolve(ctx, root)
		if err != nil {
			return "", false, err
		}
		if ok {
			return value, true, nil
		}
	}
	return "", false, nil
}
