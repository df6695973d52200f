package config

import (
	"github.com/spf13/pflag"
)

// SummarizeConfig holds configuration for the summarize command.
type SummarizeConfig struct {
	In          string
	Out         string
	PGDSN       string
	StartBlock  uint64
	EndBlock    uint64
	BucketWidth uint64
	LogLevel    string
}

// LoadSummarize merges config file, environment variables, and flags into
// SummarizeConfig.
func LoadSummarize(cfgFile string, flags *pflag.FlagSet) (SummarizeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":          "./data/summary.csv",
		"bucket-width": uint64(10000),
		"log-level":    "info",
	})
	if err != nil {
		return SummarizeConfig{}, err
	}

	cfg := SummarizeConfig{
		In:          v.GetString("in"),
		Out:         v.GetString("out"),
		PGDSN:       v.GetString("pg-dsn"),
		StartBlock:  v.GetUint64("start-block"),
		EndBlock:    v.GetUint64("end-block"),
		BucketWidth: v.GetUint64("bucket-width"),
		LogLevel:    v.GetString("log-level"),
	}

	return cfg, nil
}
