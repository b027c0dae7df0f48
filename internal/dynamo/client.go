// Package dynamo is the store layer: one DynamoDB table holding every index
// entry variant, three full-projection GSIs, and a query method per read
// pattern. It owns provisioning, batch writes, and query routing; the shape
// of the items themselves lives in internal/index.
package dynamo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DDBClient is the slice of the DynamoDB API this package uses. Tests swap in
// an in-memory implementation.
type DDBClient interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Client wraps a DynamoDB client with the paper-store access patterns. It
// holds no mutable state and is safe to share across goroutines.
type Client struct {
	ddb   DDBClient
	table string
	log   *slog.Logger

	writeRetries int
	backoffBase  time.Duration
	backoffCap   time.Duration

	provisionPoll    time.Duration
	provisionTimeout time.Duration
}

// New builds a Client around an existing DynamoDB client.
func New(ddb DDBClient, table string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		ddb:          ddb,
		table:        table,
		log:          logger,
		writeRetries:     writeRetries,
		backoffBase:      writeBackoffBase,
		backoffCap:       writeBackoffCap,
		provisionPoll:    provisionPoll,
		provisionTimeout: provisionTimeout,
	}
}

// NewFromEnv resolves AWS credentials and region the standard way and builds
// a Client on the real service.
func NewFromEnv(ctx context.Context, table string, logger *slog.Logger) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(dynamodb.NewFromConfig(cfg), table, logger), nil
}

// Table returns the table name the client operates on.
func (c *Client) Table() string {
	return c.table
}
