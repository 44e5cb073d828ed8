package broker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IliaW/reddit-news-feed/config"
	"github.com/IliaW/reddit-news-feed/internal/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress/lz4"
)

// MessageWriter is the part of kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducerClient publishes accepted records, keyed by reddit url, in batches.
type KafkaProducerClient struct {
	recordChan <-chan *model.ResultRecord
	writer     MessageWriter
	cfg        *config.ProducerConfig
	log        *slog.Logger
	wg         *sync.WaitGroup
}

func NewKafkaProducer(recordChan <-chan *model.ResultRecord, cfg *config.ProducerConfig, log *slog.Logger,
	wg *sync.WaitGroup) *KafkaProducerClient {
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.Addr, ",")...),
		Topic:        cfg.WriteTopicName,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxAttempts,
		BatchSize:    1,                // the parameter is controlled by 'batchTicker' variable
		BatchTimeout: time.Millisecond, // the parameter is controlled by 'batch' variable
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAsks),
		Async:        cfg.Async,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error("failed to send messages to kafka.", slog.String("err", err.Error()))
			}
		},
		Compression: kafka.Compression(new(lz4.Codec).Code()),
	}
	return newProducer(recordChan, w, cfg, log, wg)
}

func newProducer(recordChan <-chan *model.ResultRecord, w MessageWriter, cfg *config.ProducerConfig,
	log *slog.Logger, wg *sync.WaitGroup) *KafkaProducerClient {
	return &KafkaProducerClient{
		recordChan: recordChan,
		writer:     w,
		cfg:        cfg,
		log:        log,
		wg:         wg,
	}
}

// Run sends records until recordChan is closed, then flushes what is left in the batch.
func (p *KafkaProducerClient) Run() {
	defer p.wg.Done()
	p.log.Info("starting kafka producer...", slog.String("topic", p.cfg.WriteTopicName))
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.log.Error("failed to close kafka writer.", slog.String("err", err.Error()))
		}
	}()

	batchSize := max(1, p.cfg.BatchSize)
	batchTimeout := p.cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	batchTicker := time.NewTicker(batchTimeout)
	defer batchTicker.Stop()
	batch := make([]kafka.Message, 0, batchSize)
	writeMessage := func(batch []kafka.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.WriteTimeout)
		defer cancel()
		err := p.writer.WriteMessages(ctx, batch...)
		if err != nil {
			p.log.Error("failed to send messages to kafka.", slog.String("err", err.Error()))
			return
		}
		p.log.Debug("successfully sent messages to kafka.", slog.Int("batch length", len(batch)))
	}

	for record := range p.recordChan {
		msg, err := recordMessage(record)
		if err != nil {
			p.log.Error("marshaling error.", slog.String("err", err.Error()), slog.Any("record", record))
			continue
		}
		batch = append(batch, msg)
		select {
		case <-batchTicker.C:
			writeMessage(batch)
			batch = make([]kafka.Message, 0, batchSize)
		default:
			if len(batch) >= batchSize {
				writeMessage(batch)
				batch = make([]kafka.Message, 0, batchSize)
			}
		}
	}
	// Some messages may remain in the batch after recordChan is closed
	if len(batch) > 0 {
		p.log.Debug("messages in batch.", slog.Int("count", len(batch)))
		writeMessage(batch)
	}
	p.log.Info("stopping kafka writer.")
}

func recordMessage(record *model.ResultRecord) (kafka.Message, error) {
	body, err := jsoniter.Marshal(record)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(record.RedditURL),
		Value: body,
	}, nil
}
