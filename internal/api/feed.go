package api

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shortstrade/feedcore/internal/model"
)

// GetFeedBatch fetches up to count feed items, excluding item keys the
// caller has already seen. A failed request surfaces as a single
// feed-level error, never as partial per-item errors.
func (c *Client) GetFeedBatch(ctx context.Context, count int, exclude map[string]struct{}) ([]model.FeedItem, error) {
	query := url.Values{}
	if count > 0 {
		query.Set("count", strconv.Itoa(count))
	}
	if len(exclude) > 0 {
		keys := make([]string, 0, len(exclude))
		for k := range exclude {
			keys = append(keys, k)
		}
		sort.Strings(keys) // stable query for caches and logs
		query.Set("exclude", strings.Join(keys, ","))
	}

	var resp FeedResponse
	if err := c.get(ctx, "/shorts/feed", query, &resp); err != nil {
		return nil, fmt.Errorf("get feed batch: %w", err)
	}

	items := make([]model.FeedItem, len(resp.Items))
	for i := range resp.Items {
		items[i] = resp.Items[i].ToModel()
	}
	return items, nil
}
