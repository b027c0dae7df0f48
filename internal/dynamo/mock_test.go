package dynamo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/avicke/arxiv-store/internal/index"
)

// mockDDB is an in-memory stand-in for DynamoDB. It honours the key
// conditions, GSIs, sort order, and limits this package actually uses, and
// can inject unprocessed items or a hard failure per batch call.
type mockDDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue // "PK\x00SK" -> item

	tableExists  bool
	pendingPolls int // DescribeTable calls returning CREATING before ACTIVE
	createInput  *dynamodb.CreateTableInput

	queryCalls int
	batchCalls int
	// unprocessedOnCall maps a 1-based BatchWriteItem call number to how many
	// trailing requests of that call to bounce back as unprocessed.
	unprocessedOnCall map[int]int
	// failOnCall makes that BatchWriteItem call error without writing.
	failOnCall int
}

func newMockDDB() *mockDDB {
	return &mockDDB{
		items:             make(map[string]map[string]types.AttributeValue),
		tableExists:       true,
		unprocessedOnCall: map[int]int{},
	}
}

func itemKey(item map[string]types.AttributeValue) string {
	pk := item["PK"].(*types.AttributeValueMemberS).Value
	sk := item["SK"].(*types.AttributeValueMemberS).Value
	return pk + "\x00" + sk
}

func (m *mockDDB) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.tableExists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	status := types.TableStatusActive
	if m.pendingPolls > 0 {
		m.pendingPolls--
		status = types.TableStatusCreating
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableStatus: status},
	}, nil
}

func (m *mockDDB) CreateTable(_ context.Context, params *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tableExists {
		return nil, &types.ResourceInUseException{Message: aws.String("table exists")}
	}
	m.tableExists = true
	m.createInput = params
	return &dynamodb.CreateTableOutput{}, nil
}

func (m *mockDDB) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batchCalls++
	if m.failOnCall == m.batchCalls {
		return nil, errors.New("connection reset")
	}

	var reqs []types.WriteRequest
	var table string
	for name, r := range params.RequestItems {
		table, reqs = name, r
	}

	bounce := m.unprocessedOnCall[m.batchCalls]
	if bounce > len(reqs) {
		bounce = len(reqs)
	}
	accepted := reqs[:len(reqs)-bounce]
	leftover := reqs[len(reqs)-bounce:]

	for _, req := range accepted {
		m.items[itemKey(req.PutRequest.Item)] = req.PutRequest.Item
	}

	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	if len(leftover) > 0 {
		out.UnprocessedItems[table] = leftover
	}
	return out, nil
}

func (m *mockDDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCalls++

	expr := aws.ToString(params.KeyConditionExpression)
	pkAttr := strings.Fields(expr)[0]
	pkVal := params.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value

	sortAttr := "SK"
	switch aws.ToString(params.IndexName) {
	case index.AuthorIndex:
		sortAttr = "GSI1SK"
	case index.PaperIdIndex:
		sortAttr = "GSI2SK"
	case index.KeywordIndex:
		sortAttr = "GSI3SK"
	}

	var lo, hi string
	between := strings.Contains(expr, "BETWEEN")
	if between {
		lo = params.ExpressionAttributeValues[":start"].(*types.AttributeValueMemberS).Value
		hi = params.ExpressionAttributeValues[":end"].(*types.AttributeValueMemberS).Value
	}

	var matches []map[string]types.AttributeValue
	for _, item := range m.items {
		attr, ok := item[pkAttr].(*types.AttributeValueMemberS)
		if !ok || attr.Value != pkVal {
			continue
		}
		sk := item[sortAttr].(*types.AttributeValueMemberS).Value
		if between && (sk < lo || sk > hi) {
			continue
		}
		matches = append(matches, item)
	}

	sort.Slice(matches, func(i, j int) bool {
		si := matches[i][sortAttr].(*types.AttributeValueMemberS).Value
		sj := matches[j][sortAttr].(*types.AttributeValueMemberS).Value
		return si < sj
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
			matches[i], matches[j] = matches[j], matches[i]
		}
	}
	if params.Limit != nil && int(*params.Limit) < len(matches) {
		matches = matches[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: matches}, nil
}

// newTestClient wires a Client to the mock with fast retry and poll settings.
func newTestClient(ddb *mockDDB) *Client {
	c := New(ddb, "arxiv-papers-test", nil)
	c.backoffBase = time.Microsecond
	c.backoffCap = time.Microsecond
	c.provisionPoll = time.Millisecond
	c.provisionTimeout = time.Second
	return c
}
