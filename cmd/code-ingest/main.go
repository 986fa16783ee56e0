// Command code-ingest loads bulk-generated promo code files into a code
// batch attached to a promotion. Input files are gzip-compressed, one code
// per line; files are scanned in parallel and deduplicated before the COPY.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"promosvc/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
	copyChunkSize = 50_000
)

func main() {
	var (
		databaseURL string
		promotionID string
		source      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&promotionID, "promotion-id", "", "promotion the code batch belongs to")
	flag.StringVar(&source, "source", "", "batch source label (default: first file name)")
	flag.Parse()

	files := flag.Args()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if promotionID == "" {
		slog.Error("--promotion-id is required")
		os.Exit(1)
	}
	if len(files) == 0 {
		slog.Error("at least one code file argument is required")
		os.Exit(1)
	}
	if source == "" {
		source = files[0]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, promotionID, source, files); err != nil {
		slog.Error("code ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("code ingest completed successfully")
}

func run(ctx context.Context, databaseURL, promotionID, source string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("scanning code files", slog.Int("files", len(files)))

	codes, err := scanFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "scan code files")
	}

	slog.Info("scan complete", slog.Int("unique_codes", len(codes)))

	if len(codes) == 0 {
		slog.Info("no codes to insert")
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	batches := postgres.NewBatchStore(pool)

	batchID, err := batches.CreateBatch(ctx, promotionID, source)
	if err != nil {
		return errors.Wrap(err, "create batch")
	}

	slog.Info("created batch", slog.String("batch_id", batchID))

	var written int64
	for start := 0; start < len(codes); start += copyChunkSize {
		end := min(start+copyChunkSize, len(codes))
		n, err := batches.CopyCodes(ctx, batchID, codes[start:end])
		if err != nil {
			return errors.Wrapf(err, "copy codes %d..%d", start, end)
		}
		written += n
		slog.Info("copy progress", slog.Int64("written", written), slog.Int("total", len(codes)))
	}

	total, err := batches.CountCodes(ctx, batchID)
	if err != nil {
		return errors.Wrap(err, "count batch codes")
	}
	slog.Info("batch loaded", slog.String("batch_id", batchID), slog.Int64("codes", total))

	return nil
}

// scanFiles decompresses and scans every file concurrently, then merges and
// deduplicates. The bloom filter has no false negatives, so a true duplicate
// never slips into the COPY; the configured false-positive rate means a tiny
// fraction of unique codes may be dropped, which a marketing pool tolerates.
func scanFiles(ctx context.Context, files []string) ([]string, error) {
	perFile := make([][]string, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			var codes []string
			var count uint64
			if err := streamGzFile(ctx, f, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				codes = append(codes, code)
				count++
				if count%progressEvery == 0 {
					slog.Info("scan progress", slog.Int("file", i+1), slog.Uint64("codes", count))
				}
			}); err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}
			slog.Info("scanned file", slog.Int("file", i+1), slog.Uint64("codes", count))
			perFile[i] = codes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var unique []string
	for _, codes := range perFile {
		for _, code := range codes {
			if seen.TestOrAddString(code) {
				continue
			}
			unique = append(unique, code)
		}
	}
	return unique, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each
// whitespace-trimmed line.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
