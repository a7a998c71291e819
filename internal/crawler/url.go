package crawler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PageParam is the query parameter that selects a results page.
const PageParam = "p"

// PageURL returns the URL for result page n. Page 1 is base verbatim; later
// pages drop any existing page parameter and append p=n, keeping the other
// parameters in their original order.
func PageURL(base string, n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("page must be >= 1, got %d", n)
	}
	if n == 1 {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	kept := make([]string, 0, 4)
	if u.RawQuery != "" {
		for _, pair := range strings.Split(u.RawQuery, "&") {
			if pair == "" {
				continue
			}
			key, _, _ := strings.Cut(pair, "=")
			if key == PageParam {
				continue
			}
			kept = append(kept, pair)
		}
	}
	kept = append(kept, PageParam+"="+strconv.Itoa(n))
	u.RawQuery = strings.Join(kept, "&")
	u.ForceQuery = false
	return u.String(), nil
}
