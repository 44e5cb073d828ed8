// Package dataset collects the accepted submissions of one run.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/IliaW/reddit-news-feed/internal/model"
	jsoniter "github.com/json-iterator/go"
)

type Drainer interface {
	Drain() []model.ResultRecord
}

// Dataset is an append-only record store, safe for concurrent writers.
type Dataset struct {
	mu      sync.Mutex
	records []model.ResultRecord
	drained bool
}

func New() *Dataset {
	return &Dataset{}
}

func (d *Dataset) Append(record model.ResultRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, record)
}

func (d *Dataset) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// Drain hands out the collected records once. Later calls return nil.
func (d *Dataset) Drain() []model.ResultRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drained {
		return nil
	}
	d.drained = true
	records := d.records
	d.records = nil
	return records
}

// Aggregate drains the store into a mapping. A reddit url resolved more than once keeps
// the last record. The drained records are returned for exporters.
func Aggregate(store Drainer) (model.UrlMapping, []model.ResultRecord) {
	records := store.Drain()
	mapping := make(model.UrlMapping, len(records))
	for _, r := range records {
		mapping[r.RedditURL] = r.ArticleURL
	}
	return mapping, records
}

// WriteJSONLines writes one JSON object per record.
func WriteJSONLines(w io.Writer, records []model.ResultRecord) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		line, err := jsoniter.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err = bw.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return bw.Flush()
}
