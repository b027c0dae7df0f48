package dynamo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avicke/arxiv-store/internal/index"
	"github.com/avicke/arxiv-store/internal/models"
)

func testPaper(i int) models.Paper {
	return models.Paper{
		ArxivID:    fmt.Sprintf("2301.%05d", i),
		Title:      fmt.Sprintf("Paper %d", i),
		Categories: []string{"cs.LG"},
		Published:  "2023-01-15T00:00:00Z",
		PubDate:    "2023-01-15",
	}
}

// masterEntries builds n entries with distinct keys.
func masterEntries(n int) []index.Entry {
	out := make([]index.Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, index.Generate(testPaper(i))[0])
	}
	return out
}

func TestWriteEntriesChunksAt25(t *testing.T) {
	ddb := newMockDDB()
	c := newTestClient(ddb)

	written, err := c.WriteEntries(context.Background(), masterEntries(60))
	require.NoError(t, err)
	require.Equal(t, 60, written)
	require.Equal(t, 3, ddb.batchCalls) // 25 + 25 + 10
	require.Len(t, ddb.items, 60)
}

func TestWriteEntriesRetriesUnprocessed(t *testing.T) {
	ddb := newMockDDB()
	ddb.unprocessedOnCall[1] = 4
	c := newTestClient(ddb)

	written, err := c.WriteEntries(context.Background(), masterEntries(10))
	require.NoError(t, err)
	require.Equal(t, 10, written)
	require.Equal(t, 2, ddb.batchCalls)
	require.Len(t, ddb.items, 10)
}

func TestWriteEntriesPartialFailureNamesKeys(t *testing.T) {
	ddb := newMockDDB()
	// Bounce one item back on every attempt so retries exhaust.
	for call := 1; call <= 10; call++ {
		ddb.unprocessedOnCall[call] = 1
	}
	c := newTestClient(ddb)

	written, err := c.WriteEntries(context.Background(), masterEntries(5))

	var partial *PartialWriteError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.UnwrittenKeys, 1)
	require.Contains(t, partial.UnwrittenKeys[0], "PAPER#")
	require.Equal(t, 4, written)
}

func TestWriteEntriesSkipsEmptyKeys(t *testing.T) {
	ddb := newMockDDB()
	c := newTestClient(ddb)

	entries := masterEntries(2)
	entries = append(entries, index.Entry{PK: "", SK: "MASTER"})
	entries = append(entries, index.Entry{PK: "PAPER#x", SK: ""})

	written, err := c.WriteEntries(context.Background(), entries)
	require.NoError(t, err)
	require.Equal(t, 2, written)
	require.Len(t, ddb.items, 2)
}

func TestWriteEntriesEmptyInput(t *testing.T) {
	ddb := newMockDDB()
	c := newTestClient(ddb)

	written, err := c.WriteEntries(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, written)
	require.Zero(t, ddb.batchCalls)
}

func TestCrashMidWriteThenReloadRestoresEntries(t *testing.T) {
	ddb := newMockDDB()
	ddb.failOnCall = 2
	c := newTestClient(ddb)

	p := testPaper(1)
	p.ArxivID = "9901.00001"
	p.Authors = []string{"A. Smith", "B. Jones"}
	p.Keywords = []string{"learning", "models", "training"}
	p.Categories = []string{"cs.LG", "stat.ML", "cs.AI"}
	// Pad with more papers so the write spans multiple batches.
	entries := index.Generate(p)
	entries = append(entries, masterEntries(30)...)

	_, err := c.WriteEntries(context.Background(), entries)
	require.Error(t, err)
	require.Less(t, len(ddb.items), len(entries))

	// Recovery path: rerun the full load. Stable keys make it an overwrite.
	ddb.failOnCall = 0
	written, err := c.WriteEntries(context.Background(), entries)
	require.NoError(t, err)
	require.Equal(t, len(entries), written)
	require.Len(t, ddb.items, len(entries))
}
