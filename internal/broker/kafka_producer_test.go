package broker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IliaW/reddit-news-feed/config"
	"github.com/IliaW/reddit-news-feed/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]kafka.Message
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]kafka.Message(nil), msgs...))
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerFlushesBatches(t *testing.T) {
	recordChan := make(chan *model.ResultRecord)
	w := &fakeWriter{}
	wg := &sync.WaitGroup{}
	p := newProducer(recordChan, w, &config.ProducerConfig{
		BatchSize:    2,
		BatchTimeout: time.Hour,
		WriteTimeout: time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), wg)

	wg.Add(1)
	go p.Run()
	for _, r := range []model.ResultRecord{
		{RedditURL: "https://www.reddit.com/r/formula1/comments/1/", ArticleURL: "https://example.com/1"},
		{RedditURL: "https://www.reddit.com/r/formula1/comments/2/", ArticleURL: "https://example.com/2"},
		{RedditURL: "https://www.reddit.com/r/formula1/comments/3/", ArticleURL: "https://example.com/3"},
	} {
		recordChan <- &r
	}
	close(recordChan)
	wg.Wait()

	require.Len(t, w.batches, 2)
	assert.Len(t, w.batches[0], 2)
	assert.Len(t, w.batches[1], 1)
	assert.True(t, w.closed)
}

func TestRecordMessage(t *testing.T) {
	msg, err := recordMessage(&model.ResultRecord{
		RedditURL:  "https://www.reddit.com/r/formula1/comments/1/",
		ArticleURL: "https://example.com/1",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://www.reddit.com/r/formula1/comments/1/", string(msg.Key))
	assert.JSONEq(t, `{"reddit_url":"https://www.reddit.com/r/formula1/comments/1/","article_url":"https://example.com/1"}`,
		string(msg.Value))
}
