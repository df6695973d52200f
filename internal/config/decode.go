package config

import (
	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	RPCURL           string
	In               string
	Out              string
	Errors           string
	ABIPath          string
	EventName        string
	Concurrency      int
	FallbackName     string
	FallbackDecimals uint8
	LogLevel         string
}

// LoadDecode merges config file, environment variables, and flags into
// DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":               "./data/approvals.jsonl",
		"errors":            "./data/decode_errors.jsonl",
		"concurrency":       4,
		"fallback-name":     "Unknown Token",
		"fallback-decimals": 18,
		"log-level":         "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		RPCURL:           v.GetString("rpc"),
		In:               v.GetString("in"),
		Out:              v.GetString("out"),
		Errors:           v.GetString("errors"),
		ABIPath:          v.GetString("abi"),
		EventName:        v.GetString("event"),
		Concurrency:      v.GetInt("concurrency"),
		FallbackName:     v.GetString("fallback-name"),
		FallbackDecimals: uint8(v.GetUint("fallback-decimals")),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}
