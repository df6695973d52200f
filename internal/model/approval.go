package model

// Provenance identifies where on chain a decoded event came from. It is kept
// separate from the decoded parameters so a parameter name can never collide
// with a provenance field.
type Provenance struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
}

// ApprovalRecord is a decoded Approval event enriched with token metadata.
type ApprovalRecord struct {
	Provenance Provenance `json:"provenance"`
	Token      TokenMeta  `json:"token"`
	Owner      string     `json:"owner"`
	Spender    string     `json:"spender"`
	RawValue   string     `json:"raw_value"`
	Amount     string     `json:"amount"`
}
