package dynamo

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/avicke/arxiv-store/internal/index"
	"github.com/avicke/arxiv-store/internal/models"
)

// dateRangeUpper is '$', the byte right after the '#' separating date from
// id. "{end}$" therefore sorts above "{end}#{id}" for any id at all, which
// makes the between-condition upper bound inclusive of the end date.
const dateRangeUpper = "$"

var dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// RecentInCategory returns the newest papers of one category, newest first.
// The category partition's sort key is "{date}#{id}", so descending key order
// is recency order. No extra range condition: a begins-with on an empty
// prefix would be rejected by DynamoDB, plain equality is the correct shape.
func (c *Client) RecentInCategory(ctx context.Context, category string, limit int) ([]models.Summary, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrBadRequest)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrBadRequest)
	}

	papers, err := c.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: index.CategoryPK(category)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]models.Summary, 0, len(papers))
	for _, p := range papers {
		summaries = append(summaries, p.Summarize())
	}
	return summaries, nil
}

// ByAuthor returns every paper of one author via AuthorIndex, oldest first.
func (c *Client) ByAuthor(ctx context.Context, author string) ([]models.Paper, error) {
	if author == "" {
		return nil, fmt.Errorf("%w: author is required", ErrBadRequest)
	}

	return c.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		IndexName:              aws.String(index.AuthorIndex),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: index.AuthorGSIPK(author)},
		},
	})
}

// ByID is the point lookup through PaperIdIndex. A miss is ErrNotFound, not
// an empty list.
func (c *Client) ByID(ctx context.Context, arxivID string) (models.Paper, error) {
	if arxivID == "" {
		return models.Paper{}, fmt.Errorf("%w: arxiv_id is required", ErrBadRequest)
	}

	papers, err := c.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		IndexName:              aws.String(index.PaperIdIndex),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: index.MasterPK(arxivID)},
		},
	})
	if err != nil {
		return models.Paper{}, err
	}
	if len(papers) == 0 {
		return models.Paper{}, fmt.Errorf("%w: %s", ErrNotFound, arxivID)
	}
	return papers[0], nil
}

// DateRangeInCategory returns the papers of one category published inside
// [start, end], both inclusive. Dates compare lexically, which matches
// chronology because sort keys store fixed-width YYYY-MM-DD prefixes.
func (c *Client) DateRangeInCategory(ctx context.Context, category, start, end string) ([]models.Paper, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrBadRequest)
	}
	if !dateRegex.MatchString(start) {
		return nil, fmt.Errorf("%w: start date must be YYYY-MM-DD", ErrBadRequest)
	}
	if !dateRegex.MatchString(end) {
		return nil, fmt.Errorf("%w: end date must be YYYY-MM-DD", ErrBadRequest)
	}

	return c.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :start AND :end"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":    &types.AttributeValueMemberS{Value: index.CategoryPK(category)},
			":start": &types.AttributeValueMemberS{Value: start + "#"},
			":end":   &types.AttributeValueMemberS{Value: end + dateRangeUpper},
		},
	})
}

// ByKeyword returns the newest papers carrying one extracted keyword via
// KeywordIndex. The keyword is lowercased to match the write side.
func (c *Client) ByKeyword(ctx context.Context, keyword string, limit int) ([]models.Paper, error) {
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", ErrBadRequest)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrBadRequest)
	}

	return c.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		IndexName:              aws.String(index.KeywordIndex),
		KeyConditionExpression: aws.String("GSI3PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: index.KeywordGSIPK(keyword)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
}

// query runs one key-condition query and reconstructs papers from the entry
// payloads. Read-path store errors surface immediately, without retry.
func (c *Client) query(ctx context.Context, input *dynamodb.QueryInput) ([]models.Paper, error) {
	out, err := c.ddb.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.table, err)
	}

	papers := make([]models.Paper, 0, len(out.Items))
	for _, item := range out.Items {
		var entry index.Entry
		if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		papers = append(papers, entry.Paper)
	}
	return papers, nil
}
