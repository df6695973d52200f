package model

// SummaryRow is one (bucket, spender) cell of the approval summary table.
type SummaryRow struct {
	ChainID     uint64 `json:"chain_id"`
	BucketStart uint64 `json:"bucket_start"`
	BucketEnd   uint64 `json:"bucket_end"`
	Spender     string `json:"spender"`
	Approvals   uint64 `json:"approvals"`
}
