// Package decode turns raw event logs into typed, named parameter values.
package decode

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"approvalScope/internal/eventabi"
	"approvalScope/internal/model"
)

const wordSize = 32

// Event is a decoded log. Provenance and decoded parameters are two
// separately scoped structures, so a parameter named "tx_hash" or
// "block_number" can never shadow where the event came from.
type Event struct {
	Provenance model.Provenance
	Params     map[string]interface{}
}

// Decoder decodes logs for a single event ABI. Values of indexed
// parameters come from the topic words, non-indexed values from the data
// payload, one 32-byte word each in declaration order.
type Decoder struct {
	event      eventabi.Event
	sigHash    common.Hash
	indexed    []eventabi.Param
	nonIndexed []eventabi.Param
}

// NewDecoder builds a decoder for the given event. Events requiring any
// non-static parameter type are rejected with ErrUnsupportedType.
func NewDecoder(event eventabi.Event) (*Decoder, error) {
	d := &Decoder{
		event:   event,
		sigHash: event.ID(),
	}
	for _, param := range event.Inputs {
		if err := validateStaticType(param.Type); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", param.Name, err)
		}
		if param.Indexed {
			d.indexed = append(d.indexed, param)
		} else {
			d.nonIndexed = append(d.nonIndexed, param)
		}
	}
	return d, nil
}

// SignatureHash returns the topic0 value this decoder matches.
func (d *Decoder) SignatureHash() common.Hash {
	return d.sigHash
}

// EventName returns the name of the decoded event.
func (d *Decoder) EventName() string {
	return d.event.Name
}

// CanDecode reports whether topic0 matches this decoder's event.
func (d *Decoder) CanDecode(topic0 string) bool {
	return strings.EqualFold(topic0, d.sigHash.Hex())
}

// Decode converts a raw log record into a decoded event. The record's
// provenance fields are carried over verbatim.
func (d *Decoder) Decode(record model.LogRecord) (*Event, error) {
	if len(record.Topics) == 0 {
		return nil, fmt.Errorf("%w: missing topic0", ErrMalformedLog)
	}
	if !strings.EqualFold(record.Topics[0], d.sigHash.Hex()) {
		return nil, fmt.Errorf("%w: topic0 %s, want %s", ErrSignatureMismatch, record.Topics[0], d.sigHash.Hex())
	}
	if len(record.Topics) != len(d.indexed)+1 {
		return nil, fmt.Errorf("%w: %d topics, want %d", ErrMalformedLog, len(record.Topics), len(d.indexed)+1)
	}

	data, err := hexutil.Decode(record.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid data: %v", ErrMalformedLog, err)
	}
	if len(data) != wordSize*len(d.nonIndexed) {
		return nil, fmt.Errorf("%w: data length %d, want %d", ErrMalformedLog, len(data), wordSize*len(d.nonIndexed))
	}

	params := make(map[string]interface{}, len(d.indexed)+len(d.nonIndexed))

	for i, param := range d.indexed {
		word, err := topicWord(record.Topics[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: topic %d: %v", ErrMalformedLog, i+1, err)
		}
		value, err := decodeWord(param.Type, word)
		if err != nil {
			return nil, err
		}
		params[param.Name] = value
	}

	for i, param := range d.nonIndexed {
		var word common.Hash
		copy(word[:], data[i*wordSize:(i+1)*wordSize])
		value, err := decodeWord(param.Type, word)
		if err != nil {
			return nil, err
		}
		params[param.Name] = value
	}

	return &Event{
		Provenance: model.Provenance{
			ChainID:     record.ChainID,
			BlockNumber: record.BlockNumber,
			TxHash:      record.TxHash,
			LogIndex:    record.LogIndex,
			Address:     record.Address,
		},
		Params: params,
	}, nil
}

func topicWord(topic string) (common.Hash, error) {
	data, err := hexutil.Decode(topic)
	if err != nil {
		return common.Hash{}, err
	}
	if len(data) != wordSize {
		return common.Hash{}, fmt.Errorf("topic length %d", len(data))
	}
	return common.BytesToHash(data), nil
}

func decodeWord(typeTag string, word common.Hash) (interface{}, error) {
	switch {
	case typeTag == "address":
		return common.BytesToAddress(word.Bytes()), nil
	case typeTag == "bool":
		return word.Big().Sign() != 0, nil
	case strings.HasPrefix(typeTag, "uint"):
		if err := validateStaticType(typeTag); err != nil {
			return nil, err
		}
		return new(big.Int).SetBytes(word.Bytes()), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typeTag)
	}
}

func validateStaticType(typeTag string) error {
	switch typeTag {
	case "address", "bool":
		return nil
	}
	if suffix, ok := strings.CutPrefix(typeTag, "uint"); ok {
		bits, err := strconv.Atoi(suffix)
		if err == nil && bits >= 8 && bits <= 256 && bits%8 == 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, typeTag)
}
