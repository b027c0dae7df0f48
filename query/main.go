package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/avicke/arxiv-store/internal/config"
	"github.com/avicke/arxiv-store/internal/dynamo"
	"github.com/avicke/arxiv-store/internal/logger"
)

const usage = `Usage:
  query recent <category> [-limit N] [-table NAME]
  query author <author_name> [-table NAME]
  query get <arxiv_id> [-table NAME]
  query daterange <category> <start_date> <end_date> [-table NAME]
  query keyword <keyword> [-limit N] [-table NAME]`

func main() {
	log := logger.New("query")
	cfg, err := config.LoadQuery()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	start := time.Now()

	payload, err := run(ctx, log, cfg, os.Args[1], os.Args[2:])
	if err != nil {
		payload = map[string]any{"error": err.Error()}
	}
	payload["execution_time_ms"] = time.Since(start).Milliseconds()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(payload); encErr != nil {
		log.Error("encode payload", slog.Any("err", encErr))
		os.Exit(1)
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg *config.Query, command string, args []string) (map[string]any, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	limit := fs.Int("limit", cfg.DefaultLimit, "maximum results")
	table := fs.String("table", cfg.TableName, "table name")

	var positional []string
	for len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		positional = append(positional, args[0])
		args = args[1:]
	}
	// A malformed flag value (e.g. -limit abc) fails here, before any store
	// call is made.
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	arg := func(i int, name string) (string, error) {
		if i >= len(positional) {
			return "", fmt.Errorf("%s is required\n%s", name, usage)
		}
		return positional[i], nil
	}

	store, err := dynamo.NewFromEnv(ctx, *table, log)
	if err != nil {
		return nil, err
	}

	switch command {
	case "recent":
		category, err := arg(0, "category")
		if err != nil {
			return nil, err
		}
		items, err := store.RecentInCategory(ctx, category, *limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"query_type": "recent_in_category",
			"parameters": map[string]any{"category": category, "limit": *limit},
			"results":    items,
			"count":      len(items),
		}, nil

	case "author":
		author, err := arg(0, "author_name")
		if err != nil {
			return nil, err
		}
		items, err := store.ByAuthor(ctx, author)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"query_type": "papers_by_author",
			"parameters": map[string]any{"author": author},
			"results":    items,
			"count":      len(items),
		}, nil

	case "get":
		arxivID, err := arg(0, "arxiv_id")
		if err != nil {
			return nil, err
		}
		paper, err := store.ByID(ctx, arxivID)
		payload := map[string]any{
			"query_type": "get_by_id",
			"parameters": map[string]any{"arxiv_id": arxivID},
		}
		switch {
		case err == nil:
			payload["result"] = paper
			payload["found"] = true
		case errors.Is(err, dynamo.ErrNotFound):
			payload["result"] = nil
			payload["found"] = false
		default:
			return nil, err
		}
		return payload, nil

	case "daterange":
		category, err := arg(0, "category")
		if err != nil {
			return nil, err
		}
		startDate, err := arg(1, "start_date")
		if err != nil {
			return nil, err
		}
		endDate, err := arg(2, "end_date")
		if err != nil {
			return nil, err
		}
		items, err := store.DateRangeInCategory(ctx, category, startDate, endDate)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"query_type": "date_range_in_category",
			"parameters": map[string]any{"category": category, "start_date": startDate, "end_date": endDate},
			"results":    items,
			"count":      len(items),
		}, nil

	case "keyword":
		keyword, err := arg(0, "keyword")
		if err != nil {
			return nil, err
		}
		items, err := store.ByKeyword(ctx, keyword, *limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"query_type": "papers_by_keyword",
			"parameters": map[string]any{"keyword": keyword, "limit": *limit},
			"results":    items,
			"count":      len(items),
		}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s\n%s", command, usage)
	}
}
