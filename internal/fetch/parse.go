package fetch

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseOptionalAddress parses a single optional address; empty input is nil.
func ParseOptionalAddress(input string) (*common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if !common.IsHexAddress(input) {
		return nil, fmt.Errorf("invalid address: %s", input)
	}
	addr := common.HexToAddress(input)
	return &addr, nil
}
