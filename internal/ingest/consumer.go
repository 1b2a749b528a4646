package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/scan"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ScanMessage is the payload readers publish on the scan topic.
type ScanMessage struct {
	UIDresult string `json:"UIDresult"`
}

type Processor interface {
	Process(ctx context.Context, uid string) (scan.Result, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer feeds scans arriving over Kafka into the pipeline.
type Consumer struct {
	reader  messageReader
	scans   Processor
	log     logrus.FieldLogger
	backoff time.Duration
}

func NewConsumer(scans Processor, log logrus.FieldLogger, topic, groupID string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, scans, log)
}

func newConsumer(reader messageReader, scans Processor, log logrus.FieldLogger) *Consumer {
	return &Consumer{
		reader:  reader,
		scans:   scans,
		log:     log.WithField("component", "scan-consumer"),
		backoff: time.Second,
	}
}

// Run blocks until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !c.processMessage(ctx) {
			return
		}
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.WithError(err).Error("error closing kafka reader")
	}
}

// processMessage handles one message and reports whether the loop should go on.
func (c *Consumer) processMessage(ctx context.Context) bool {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return false
		}
		c.log.WithError(err).Error("error reading message")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff):
		}
		return true
	}

	var msg ScanMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		c.log.WithError(err).WithField("offset", m.Offset).Warn("skipping malformed scan message")
		return true
	}

	res, err := c.scans.Process(ctx, msg.UIDresult)
	log := c.log.WithFields(logrus.Fields{"uid": msg.UIDresult, "offset": m.Offset})
	if err != nil {
		log.WithError(err).Error("scan failed")
		return true
	}
	log.WithFields(logrus.Fields{"outcome": res.Outcome.String(), "state": res.State}).Info("scan consumed")
	return true
}
