// Package filter builds log query descriptors for the RPC collaborator.
package filter

import (
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Spec describes a log query. Topics[0] is the event signature hash; each
// later position constrains one indexed parameter in declaration order. A
// nil entry at a position is a wildcard, not a zero value. A nil FromBlock
// means earliest, a nil ToBlock means latest. Spec performs no I/O.
type Spec struct {
	Addresses []common.Address
	Topics    [][]common.Hash
	FromBlock *big.Int
	ToBlock   *big.Int
}

// New builds a Spec matching the event with the given signature hash.
// Each entry of argTopics constrains the indexed parameter at that
// position; nil entries stay wildcards.
func New(sigHash common.Hash, argTopics ...[]common.Hash) Spec {
	topics := make([][]common.Hash, 1, 1+len(argTopics))
	topics[0] = []common.Hash{sigHash}
	topics = append(topics, argTopics...)
	return Spec{Topics: topics}
}

// WithAddresses restricts the query to the given contract addresses.
func (s Spec) WithAddresses(addrs ...common.Address) Spec {
	s.Addresses = append(s.Addresses, addrs...)
	return s
}

// WithBlockRange sets the inclusive block range. Pass nil for a symbolic
// earliest or latest bound.
func (s Spec) WithBlockRange(from, to *big.Int) Spec {
	s.FromBlock = from
	s.ToBlock = to
	return s
}

// Query converts the spec into the go-ethereum filter query.
func (s Spec) Query() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: s.FromBlock,
		ToBlock:   s.ToBlock,
		Addresses: s.Addresses,
		Topics:    s.Topics,
	}
}

// AddressTopic encodes an address as a 32-byte topic word: the 20 address
// bytes left-padded with 12 zero bytes.
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// AddressFromTopic recovers the address from a padded topic word.
func AddressFromTopic(topic common.Hash) common.Address {
	return common.BytesToAddress(topic.Bytes())
}

// BlockNumber converts a block height into a bound for WithBlockRange.
func BlockNumber(n uint64) *big.Int {
	return new(big.Int).SetUint64(n)
}
