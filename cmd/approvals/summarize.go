package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"approvalScope/internal/aggregate"
	"approvalScope/internal/config"
	"approvalScope/internal/model"
	"approvalScope/internal/storage/postgres"
)

func runSummarize(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSummarize(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	records, err := readApprovals(cfg.In)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no approval records in %s", cfg.In)
	}

	aggCfg := aggregate.Config{
		ChainID:     records[0].Provenance.ChainID,
		StartBlock:  cfg.StartBlock,
		EndBlock:    cfg.EndBlock,
		BucketWidth: cfg.BucketWidth,
	}
	if aggCfg.StartBlock == 0 && aggCfg.EndBlock == 0 {
		aggCfg.StartBlock, aggCfg.EndBlock = blockSpan(records)
	}

	summary, err := aggregate.Build(records, aggCfg)
	if err != nil {
		return err
	}

	logger.Info("summary built",
		zap.Uint64("chain_id", summary.ChainID),
		zap.Uint64("start_block", aggCfg.StartBlock),
		zap.Uint64("end_block", aggCfg.EndBlock),
		zap.Uint64("bucket_width", aggCfg.BucketWidth),
		zap.Int("buckets", len(summary.Buckets)),
		zap.Int("spenders", len(summary.Spenders)),
		zap.Int("dropped", summary.Dropped),
	)

	if err := writeSummaryCSV(summary, cfg.Out); err != nil {
		return err
	}
	logger.Info("summary written", zap.String("out", cfg.Out))

	if cfg.PGDSN != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := persistSummary(ctx, cfg.PGDSN, records, summary); err != nil {
			return err
		}
		logger.Info("summary persisted to postgres")
	}

	return nil
}

func readApprovals(path string) ([]model.ApprovalRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var records []model.ApprovalRecord
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record model.ApprovalRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("parse approval record: %w", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return records, nil
}

// blockSpan returns the [min, max+1) block range covering the records.
func blockSpan(records []model.ApprovalRecord) (uint64, uint64) {
	start := records[0].Provenance.BlockNumber
	end := start
	for _, record := range records[1:] {
		block := record.Provenance.BlockNumber
		if block < start {
			start = block
		}
		if block > end {
			end = block
		}
	}
	return start, end + 1
}

func writeSummaryCSV(summary *aggregate.Summary, path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if err := summary.WriteCSV(file); err != nil {
		file.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	return file.Close()
}

func persistSummary(ctx context.Context, dsn string, records []model.ApprovalRecord, summary *aggregate.Summary) error {
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.UpsertTokens(ctx, summary.ChainID, uniqueTokens(records)); err != nil {
		return fmt.Errorf("upsert tokens: %w", err)
	}
	if err := store.UpsertSummaryRows(ctx, summary.Rows()); err != nil {
		return fmt.Errorf("upsert summary rows: %w", err)
	}
	return nil
}

func uniqueTokens(records []model.ApprovalRecord) []model.TokenMeta {
	seen := make(map[string]struct{})
	tokens := make([]model.TokenMeta, 0)
	for _, record := range records {
		if _, ok := seen[record.Token.Address]; ok {
			continue
		}
		seen[record.Token.Address] = struct{}{}
		tokens = append(tokens, record.Token)
	}
	return tokens
}
