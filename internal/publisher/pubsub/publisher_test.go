package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/jobscout-crawler/internal/crawler"
)

func TestPublisherPublishesSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	pub, err := Dial(ctx, "jobscout-test", "crawl-runs", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	_, err = pub.client.CreateTopic(ctx, "crawl-runs")
	require.NoError(t, err)

	summary := crawler.RunSummary{
		RunID:        "run-1",
		BaseURL:      "https://www.jobscout24.ch/de/jobs/",
		StartedAt:    time.Unix(1700000000, 0).UTC(),
		ItemsScraped: 40,
		ItemsFailed:  2,
	}
	id, err := pub.Publish(ctx, "crawl-runs", summary)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	var got crawler.RunSummary
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, summary.RunID, got.RunID)
	require.Equal(t, 40, got.ItemsScraped)
}

func TestPublisherNotConfigured(t *testing.T) {
	t.Parallel()

	var pub *Publisher
	_, err := pub.Publish(context.Background(), "t", map[string]string{})
	require.Error(t, err)
	require.NoError(t, pub.Close())

	_, err = New((*pubsub.Topic)(nil)).Publish(context.Background(), "t", 1)
	require.Error(t, err)

	_, err = Dial(context.Background(), "", "topic")
	require.Error(t, err)
}

func TestPublisherMarshalError(t *testing.T) {
	t.Parallel()

	pub := New(&pubsub.Topic{})
	_, err := pub.Publish(context.Background(), "t", make(chan int))
	require.ErrorContains(t, err, "marshal payload")
}
