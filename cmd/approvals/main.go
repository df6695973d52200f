package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"approvalScope/internal/chain"
	"approvalScope/internal/config"
	"approvalScope/internal/eventabi"
	"approvalScope/internal/fetch"
	"approvalScope/internal/filter"
	"approvalScope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "approvals",
		Short:        "ERC20 approval event scanner",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch raw approval logs into JSONL",
		RunE:  runFetch,
	}

	fetchCmd.Flags().String("rpc", "", "RPC URL")
	fetchCmd.Flags().Uint64("from", 0, "start block (inclusive), 0 means earliest")
	fetchCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	fetchCmd.Flags().StringSlice("address", nil, "token contract addresses (comma-separated, empty matches all)")
	fetchCmd.Flags().String("owner", "", "only approvals granted by this owner address")
	fetchCmd.Flags().String("spender", "", "only approvals granted to this spender address")
	fetchCmd.Flags().String("abi", "", "event ABI JSON file (defaults to ERC20 Approval)")
	fetchCmd.Flags().String("event", "", "event name to select from the ABI file")
	fetchCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	fetchCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	fetchCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	fetchCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	fetchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fetchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(fetchCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into approval records",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "RPC URL")
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/approvals.jsonl", "output approvals JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("abi", "", "event ABI JSON file (defaults to ERC20 Approval)")
	decodeCmd.Flags().String("event", "", "event name to select from the ABI file")
	decodeCmd.Flags().Int("concurrency", 4, "concurrent token metadata resolutions")
	decodeCmd.Flags().String("fallback-name", "Unknown Token", "token name when metadata calls fail")
	decodeCmd.Flags().Uint8("fallback-decimals", 18, "token decimals when metadata calls fail")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	summarizeCmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize approvals per spender into block buckets",
		RunE:  runSummarize,
	}

	summarizeCmd.Flags().String("in", "", "input approvals JSONL")
	summarizeCmd.Flags().String("out", "./data/summary.csv", "output CSV path")
	summarizeCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for summary rows")
	summarizeCmd.Flags().Uint64("start-block", 0, "summary range start (inclusive), 0 derives from input")
	summarizeCmd.Flags().Uint64("end-block", 0, "summary range end (exclusive), 0 derives from input")
	summarizeCmd.Flags().Uint64("bucket-width", 10000, "blocks per bucket")
	summarizeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(summarizeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	event, err := loadEvent(cmd)
	if err != nil {
		return err
	}

	addresses, err := fetch.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	owner, err := fetch.ParseOptionalAddress(cfg.Owner)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	spender, err := fetch.ParseOptionalAddress(cfg.Spender)
	if err != nil {
		return fmt.Errorf("spender: %w", err)
	}

	spec := filter.New(event.ID(), argTopics(owner, spender)...).WithAddresses(addresses...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	storageSink := storage.NewJsonlStorage(cfg.Out)

	runner := fetch.NewRunner(fetch.RunConfig{
		Spec:              spec,
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, storageSink, logger)

	logger.Info("fetch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("event", event.Signature()),
		zap.String("topic0", event.ID().Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	return runner.Run(ctx)
}

// argTopics builds the indexed-parameter constraint slots for the Approval
// filter; a nil slot stays a wildcard.
func argTopics(owner, spender *common.Address) [][]common.Hash {
	if owner == nil && spender == nil {
		return nil
	}

	topics := make([][]common.Hash, 0, 2)
	if owner != nil {
		topics = append(topics, []common.Hash{filter.AddressTopic(*owner)})
	} else {
		topics = append(topics, nil)
	}
	if spender != nil {
		topics = append(topics, []common.Hash{filter.AddressTopic(*spender)})
	}
	return topics
}

func loadEvent(cmd *cobra.Command) (eventabi.Event, error) {
	abiPath, _ := cmd.Flags().GetString("abi")
	eventName, _ := cmd.Flags().GetString("event")

	if abiPath == "" {
		return eventabi.ERC20Approval, nil
	}

	data, err := os.ReadFile(abiPath)
	if err != nil {
		return eventabi.Event{}, fmt.Errorf("read abi: %w", err)
	}
	return eventabi.ParseJSON(data, eventName)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
