package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/avicke/arxiv-store/internal/index"
)

const (
	provisionTimeout = 5 * time.Minute
	provisionPoll    = 3 * time.Second
)

// EnsureTable makes sure the table and its three GSIs exist and are ACTIVE.
// Safe to call on every load run: an existing ready table is a no-op, a table
// mid-creation from a concurrent run is waited on.
func (c *Client) EnsureTable(ctx context.Context) error {
	out, err := c.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.table),
	})
	if err == nil {
		if out.Table.TableStatus == types.TableStatusActive {
			c.log.Debug("table ready", slog.String("table", c.table))
			return nil
		}
		c.log.Info("table exists but is not active, waiting",
			slog.String("table", c.table),
			slog.String("status", string(out.Table.TableStatus)),
		)
		return c.waitForActive(ctx)
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", c.table, err)
	}

	c.log.Info("creating table", slog.String("table", c.table))
	if err := c.createTable(ctx); err != nil {
		// A concurrent loader may have won the race; fall through to waiting.
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return err
		}
	}
	return c.waitForActive(ctx)
}

func (c *Client) createTable(ctx context.Context) error {
	stringAttr := func(name string) types.AttributeDefinition {
		return types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		}
	}
	keySchema := func(hash, sortKey string) []types.KeySchemaElement {
		return []types.KeySchemaElement{
			{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange},
		}
	}
	// Full projection on every GSI: each read pattern reconstructs the whole
	// paper from the index alone.
	gsi := func(name, hash, sortKey string) types.GlobalSecondaryIndex {
		return types.GlobalSecondaryIndex{
			IndexName:  aws.String(name),
			KeySchema:  keySchema(hash, sortKey),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}
	}

	_, err := c.ddb.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(c.table),
		AttributeDefinitions: []types.AttributeDefinition{
			stringAttr("PK"), stringAttr("SK"),
			stringAttr("GSI1PK"), stringAttr("GSI1SK"),
			stringAttr("GSI2PK"), stringAttr("GSI2SK"),
			stringAttr("GSI3PK"), stringAttr("GSI3SK"),
		},
		KeySchema:   keySchema("PK", "SK"),
		BillingMode: types.BillingModePayPerRequest,
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(index.AuthorIndex, "GSI1PK", "GSI1SK"),
			gsi(index.PaperIdIndex, "GSI2PK", "GSI2SK"),
			gsi(index.KeywordIndex, "GSI3PK", "GSI3SK"),
		},
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", c.table, err)
	}
	return nil
}

func (c *Client) waitForActive(ctx context.Context) error {
	deadline := time.Now().Add(c.provisionTimeout)
	for {
		out, err := c.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(c.table),
		})
		if err == nil && out.Table.TableStatus == types.TableStatusActive {
			c.log.Info("table active", slog.String("table", c.table))
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: table %s", ErrProvisionTimeout, c.table)
		}

		select {
		case <-time.After(c.provisionPoll):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
