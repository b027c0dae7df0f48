package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/avicke/arxiv-store/internal/index"
)

const (
	// DynamoDB rejects batch writes above 25 items.
	maxBatchSize = 25

	writeRetries     = 5
	writeBackoffBase = 100 * time.Millisecond
	writeBackoffCap  = 5 * time.Second
)

// WriteEntries persists entries in batches of at most 25, retrying
// unprocessed subsets with exponential backoff. It returns the number of
// entries written; when retries exhaust it also returns a PartialWriteError
// naming the keys left unwritten. Writes are plain puts under stable keys, so
// rerunning a load over the same papers replaces instead of duplicating.
func (c *Client) WriteEntries(ctx context.Context, entries []index.Entry) (int, error) {
	requests := make([]types.WriteRequest, 0, len(entries))
	for _, e := range entries {
		// The generator never emits these, but a broken key would poison the
		// whole batch, so filter once more before submission.
		if e.PK == "" || e.SK == "" {
			c.log.Warn("skipping entry with empty key", slog.String("pk", e.PK), slog.String("sk", e.SK))
			continue
		}
		item, err := attributevalue.MarshalMap(e)
		if err != nil {
			return 0, fmt.Errorf("marshal entry %s/%s: %w", e.PK, e.SK, err)
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	written := 0
	var unwritten []string

	for start := 0; start < len(requests); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(requests) {
			end = len(requests)
		}
		chunk := requests[start:end]

		leftover, err := c.writeChunk(ctx, chunk)
		if err != nil {
			return written, err
		}
		written += len(chunk) - len(leftover)
		for _, req := range leftover {
			unwritten = append(unwritten, requestKey(req))
		}
	}

	if len(unwritten) > 0 {
		return written, &PartialWriteError{UnwrittenKeys: unwritten}
	}
	return written, nil
}

// writeChunk issues one batch put and retries whatever the store reports as
// unprocessed. Returns the requests still unprocessed after the last attempt.
func (c *Client) writeChunk(ctx context.Context, chunk []types.WriteRequest) ([]types.WriteRequest, error) {
	pending := chunk
	backoff := c.backoffBase

	for attempt := 0; ; attempt++ {
		out, err := c.ddb.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{c.table: pending},
		})
		if err != nil {
			return pending, fmt.Errorf("batch write: %w", err)
		}

		pending = out.UnprocessedItems[c.table]
		if len(pending) == 0 {
			return nil, nil
		}
		if attempt >= c.writeRetries {
			return pending, nil
		}

		c.log.Warn("retrying unprocessed items",
			slog.Int("count", len(pending)),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return pending, ctx.Err()
		}
		backoff *= 2
		if backoff > c.backoffCap {
			backoff = c.backoffCap
		}
	}
}

func requestKey(req types.WriteRequest) string {
	if req.PutRequest == nil {
		return "?"
	}
	pk, sk := "?", "?"
	if v, ok := req.PutRequest.Item["PK"].(*types.AttributeValueMemberS); ok {
		pk = v.Value
	}
	if v, ok := req.PutRequest.Item["SK"].(*types.AttributeValueMemberS); ok {
		sk = v.Value
	}
	return pk + "/" + sk
}
