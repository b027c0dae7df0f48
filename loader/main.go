package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avicke/arxiv-store/internal/config"
	"github.com/avicke/arxiv-store/internal/dynamo"
	"github.com/avicke/arxiv-store/internal/index"
	"github.com/avicke/arxiv-store/internal/logger"
	"github.com/avicke/arxiv-store/internal/models"
	"github.com/avicke/arxiv-store/internal/processing"
)

func main() {
	log := logger.New("loader")
	cfg, err := config.LoadLoader()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	tableFlag := flag.String("table", "", "override the target table name")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-table NAME] <papers.json>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	table := cfg.TableName
	if *tableFlag != "" {
		table = *tableFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	papers, err := readPapers(flag.Arg(0))
	if err != nil {
		log.Error("read input", slog.Any("err", err))
		os.Exit(1)
	}

	store, err := dynamo.NewFromEnv(ctx, table, log)
	if err != nil {
		log.Error("init store", slog.Any("err", err))
		os.Exit(1)
	}

	if err := store.EnsureTable(ctx); err != nil {
		log.Error("ensure table", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("loading papers",
		slog.Int("count", len(papers)),
		slog.String("table", table),
		slog.Int("concurrency", cfg.Concurrency),
	)

	start := time.Now()
	stats := loadAll(ctx, log, store, papers, cfg.Concurrency)
	stats.print(time.Since(start))

	if stats.failed > 0 {
		os.Exit(1)
	}
}

// readPapers accepts either a bare JSON array of papers or an object wrapping
// one under "papers".
func readPapers(path string) ([]models.RawPaper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var direct []models.RawPaper
	if err := json.Unmarshal(data, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		Papers []models.RawPaper `json:"papers"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Papers != nil {
		return wrapped.Papers, nil
	}

	return nil, fmt.Errorf("%s: expected a JSON array of papers or an object with a \"papers\" array", path)
}

type loadStats struct {
	mu       sync.Mutex
	papers   int
	items    int
	byKind   map[index.Kind]int
	rejected map[string]int
	failed   int
}

func (s *loadStats) reject(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[reason]++
}

func (s *loadStats) loaded(entries []index.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.papers++
	s.items += len(entries)
	for _, e := range entries {
		s.byKind[e.ItemType]++
	}
}

func (s *loadStats) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

// loadAll normalizes, generates, and writes every paper. Papers are
// independent, so writes fan out across a bounded worker pool; idempotent
// overwrite keeps overlapping runs safe.
func loadAll(ctx context.Context, log *slog.Logger, store *dynamo.Client, papers []models.RawPaper, concurrency int) *loadStats {
	stats := &loadStats{
		byKind:   make(map[index.Kind]int),
		rejected: make(map[string]int),
	}

	jobs := make(chan models.RawPaper)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range jobs {
				loadOne(ctx, log, store, raw, stats)
			}
		}()
	}

	for _, raw := range papers {
		select {
		case jobs <- raw:
		case <-ctx.Done():
			log.Warn("load interrupted")
			close(jobs)
			wg.Wait()
			return stats
		}
	}
	close(jobs)
	wg.Wait()
	return stats
}

func loadOne(ctx context.Context, log *slog.Logger, store *dynamo.Client, raw models.RawPaper, stats *loadStats) {
	paper, err := processing.Normalize(raw)
	if err != nil {
		switch {
		case errors.Is(err, processing.ErrMissingID):
			stats.reject("missing_id")
		case errors.Is(err, processing.ErrBadID):
			stats.reject("bad_id")
		case errors.Is(err, processing.ErrNoCategory):
			stats.reject("no_category")
		default:
			stats.reject("other")
		}
		log.Debug("paper rejected", slog.Any("reason", err))
		return
	}

	entries := index.Generate(paper)
	if _, err := store.WriteEntries(ctx, entries); err != nil {
		stats.fail()
		var partial *dynamo.PartialWriteError
		if errors.As(err, &partial) {
			log.Error("partial write, reload this paper to recover",
				slog.String("arxiv_id", paper.ArxivID),
				slog.Int("unwritten", len(partial.UnwrittenKeys)),
			)
			return
		}
		log.Error("write failed", slog.String("arxiv_id", paper.ArxivID), slog.Any("err", err))
		return
	}

	stats.loaded(entries)
}

func (s *loadStats) print(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	denorm := 0.0
	avg := func(kind index.Kind) float64 {
		if s.papers == 0 {
			return 0
		}
		return float64(s.byKind[kind]) / float64(s.papers)
	}
	if s.papers > 0 {
		denorm = float64(s.items) / float64(s.papers)
	}

	fmt.Printf("Loaded %d papers\n", s.papers)
	fmt.Printf("Created %d items (denormalization factor: %.1fx)\n", s.items, denorm)
	fmt.Println("\nStorage breakdown:")
	fmt.Printf("  - Master items:   %d\n", s.byKind[index.KindMaster])
	fmt.Printf("  - Category items: %d (%.1f per paper avg)\n", s.byKind[index.KindCategory], avg(index.KindCategory))
	fmt.Printf("  - Author items:   %d (%.1f per paper avg)\n", s.byKind[index.KindAuthor], avg(index.KindAuthor))
	fmt.Printf("  - Keyword items:  %d (%.1f per paper avg)\n", s.byKind[index.KindKeyword], avg(index.KindKeyword))

	if len(s.rejected) > 0 {
		fmt.Println("\nRejected:")
		for reason, n := range s.rejected {
			fmt.Printf("  - %s: %d\n", reason, n)
		}
	}
	if s.failed > 0 {
		fmt.Printf("\nWrite failures: %d (rerun the load to recover)\n", s.failed)
	}

	fmt.Printf("\nCompleted in %d ms\n", elapsed.Milliseconds())
}
