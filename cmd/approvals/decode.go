package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"approvalScope/internal/chain"
	"approvalScope/internal/config"
	"approvalScope/internal/decode"
	"approvalScope/internal/model"
	"approvalScope/internal/token"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	event, err := loadEvent(cmd)
	if err != nil {
		return err
	}
	decoder, err := decode.NewDecoder(event)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	resolver := token.NewResolver(chainClient, token.Fallback{
		Name:     cfg.FallbackName,
		Decimals: cfg.FallbackDecimals,
	}, logger)

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	errWriter, err := newJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("event", event.Signature()),
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Int("concurrency", cfg.Concurrency),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var events []*decode.Event
	var total, skipped, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			writeDecodeError(errWriter, model.DecodeError{Error: err.Error()})
			continue
		}
		if len(record.Topics) == 0 {
			failed++
			writeDecodeError(errWriter, decodeErrorFromRecord(record, fmt.Errorf("missing topic0")))
			continue
		}
		if !decoder.CanDecode(record.Topics[0]) {
			skipped++
			continue
		}

		decoded, err := decoder.Decode(record)
		if err != nil {
			failed++
			writeDecodeError(errWriter, decodeErrorFromRecord(record, err))
			continue
		}
		events = append(events, decoded)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	// Aggregation downstream expects deterministic (block, log) ordering.
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Provenance, events[j].Provenance
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.LogIndex < b.LogIndex
	})

	if err := resolver.ResolveAll(ctx, uniqueContracts(events), cfg.Concurrency); err != nil {
		return fmt.Errorf("resolve token metadata: %w", err)
	}

	outWriter, err := newJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	var written int
	for _, decoded := range events {
		record, err := approvalFromEvent(ctx, decoded, resolver)
		if err != nil {
			failed++
			writeDecodeError(errWriter, model.DecodeError{
				ChainID:     decoded.Provenance.ChainID,
				BlockNumber: decoded.Provenance.BlockNumber,
				TxHash:      decoded.Provenance.TxHash,
				LogIndex:    decoded.Provenance.LogIndex,
				Address:     decoded.Provenance.Address,
				Error:       err.Error(),
			})
			continue
		}
		if err := outWriter.Write(record); err != nil {
			return err
		}
		written++
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", written),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func uniqueContracts(events []*decode.Event) []common.Address {
	seen := make(map[common.Address]struct{})
	addrs := make([]common.Address, 0)
	for _, event := range events {
		if !common.IsHexAddress(event.Provenance.Address) {
			continue
		}
		addr := common.HexToAddress(event.Provenance.Address)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}
	return addrs
}

// approvalFromEvent maps the decoded parameters onto an approval record.
// The Approval ABI names its parameters owner, spender, and value.
func approvalFromEvent(ctx context.Context, event *decode.Event, resolver *token.Resolver) (model.ApprovalRecord, error) {
	owner, err := addressParam(event, "owner")
	if err != nil {
		return model.ApprovalRecord{}, err
	}
	spender, err := addressParam(event, "spender")
	if err != nil {
		return model.ApprovalRecord{}, err
	}
	value, ok := event.Params["value"].(*big.Int)
	if !ok {
		return model.ApprovalRecord{}, fmt.Errorf("parameter %q is missing or not an integer", "value")
	}

	if !common.IsHexAddress(event.Provenance.Address) {
		return model.ApprovalRecord{}, fmt.Errorf("invalid contract address: %s", event.Provenance.Address)
	}
	meta := resolver.Resolve(ctx, common.HexToAddress(event.Provenance.Address))

	return model.ApprovalRecord{
		Provenance: event.Provenance,
		Token:      meta,
		Owner:      owner.Hex(),
		Spender:    spender.Hex(),
		RawValue:   value.String(),
		Amount:     token.FormatAmount(value, meta.Decimals),
	}, nil
}

func addressParam(event *decode.Event, name string) (common.Address, error) {
	value, ok := event.Params[name].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("parameter %q is missing or not an address", name)
	}
	return value, nil
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newJSONLWriter(path string, appendMode bool) (*jsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func decodeErrorFromRecord(record model.LogRecord, err error) model.DecodeError {
	topic0 := ""
	if len(record.Topics) > 0 {
		topic0 = record.Topics[0]
	}

	return model.DecodeError{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      topic0,
		Error:       err.Error(),
	}
}

func writeDecodeError(writer *jsonlWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
