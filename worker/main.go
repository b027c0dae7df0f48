package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/avicke/arxiv-store/internal/config"
	"github.com/avicke/arxiv-store/internal/dedupe"
	"github.com/avicke/arxiv-store/internal/dynamo"
	"github.com/avicke/arxiv-store/internal/index"
	"github.com/avicke/arxiv-store/internal/logger"
	"github.com/avicke/arxiv-store/internal/models"
	"github.com/avicke/arxiv-store/internal/processing"
)

type entryWriter interface {
	WriteEntries(ctx context.Context, entries []index.Entry) (int, error)
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := dynamo.NewFromEnv(ctx, cfg.TableName, log)
	if err != nil {
		log.Error("init store", slog.Any("err", err))
		os.Exit(1)
	}
	if err := store.EnsureTable(ctx); err != nil {
		log.Error("ensure table", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	runID := uuid.NewString()
	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("table", cfg.TableName),
		slog.String("run_id", runID),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, store, cache, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !sendToDLQ(ctx, log, dlqWriter, runID, msg, err) {
				// Skip the commit so the message is reprocessed on restart.
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage normalizes one raw paper and writes its entry set. A paper
// already written inside the dedupe window is skipped; the write would be an
// idempotent overwrite anyway.
func processMessage(ctx context.Context, log *slog.Logger, store entryWriter, cache *dedupe.Cache, msg kafka.Message) error {
	var raw models.RawPaper
	if err := json.Unmarshal(msg.Value, &raw); err != nil {
		return fmt.Errorf("decode paper: %w", err)
	}

	paper, err := processing.Normalize(raw)
	if err != nil {
		return fmt.Errorf("normalize paper: %w", err)
	}

	if cache.Seen(paper.ArxivID) {
		log.Debug("duplicate paper", slog.String("arxiv_id", paper.ArxivID))
		return nil
	}

	entries := index.Generate(paper)
	written, err := store.WriteEntries(ctx, entries)
	if err != nil {
		return fmt.Errorf("write entries for %s: %w", paper.ArxivID, err)
	}

	cache.Record(paper.ArxivID)
	log.Info("paper indexed",
		slog.String("arxiv_id", paper.ArxivID),
		slog.Int("entries", written),
	)
	return nil
}

// sendToDLQ forwards a failed message with error context, retrying with
// exponential backoff. Returns false when every attempt failed.
func sendToDLQ(ctx context.Context, log *slog.Logger, w *kafka.Writer, runID string, msg kafka.Message, cause error) bool {
	dlqMsg := kafka.Message{
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "run_id", Value: []byte(runID)},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := 0; attempt < 5; attempt++ {
		if err := w.WriteMessages(ctx, dlqMsg); err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		} else {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Warn("DLQ write failed, retrying",
				slog.Any("err", err),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return false
			}
		}
	}

	log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}
