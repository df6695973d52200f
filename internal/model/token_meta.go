package model

// TokenMeta captures ERC20 display metadata for a contract address.
type TokenMeta struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	Fallback bool   `json:"fallback,omitempty"`
}
