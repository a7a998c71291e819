package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "crawl-runs", map[string]int{"items_scraped": 3})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "crawl-runs", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.JSONEq(t, `{"items_scraped":3}`, string(msgs[0].Data))
	require.Equal(t, `"payload"`, string(msgs[1].Data))

	msgs[0].Topic = "modified"
	require.Equal(t, "crawl-runs", pub.Messages()[0].Topic)
	require.NoError(t, pub.Close())
}

func TestPublisherMarshalError(t *testing.T) {
	t.Parallel()

	_, err := New().Publish(context.Background(), "t", func() {})
	require.Error(t, err)
	require.Empty(t, New().Messages())
}
