package decode

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"approvalScope/internal/eventabi"
	"approvalScope/internal/model"
)

func buildLogRecord(contract common.Address, topic0 common.Hash, indexed []common.Hash, data []byte) model.LogRecord {
	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, topic0.Hex())
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     1,
		BlockNumber: 13129988,
		TxHash:      "0xdef",
		LogIndex:    3,
		Address:     contract.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
	}
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func TestDecodeApproval(t *testing.T) {
	decoder, err := NewDecoder(eventabi.ERC20Approval)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	contract := common.HexToAddress("0x4b92d19c11435614CD49Af1b589001b7c08cD4D5")
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	value, _ := new(big.Int).SetString("1000000000000000000000", 10)

	record := buildLogRecord(contract, decoder.SignatureHash(), []common.Hash{
		addressTopic(owner),
		addressTopic(spender),
	}, common.BigToHash(value).Bytes())

	event, err := decoder.Decode(record)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if event.Provenance.BlockNumber != 13129988 || event.Provenance.TxHash != "0xdef" {
		t.Fatalf("provenance mismatch: %+v", event.Provenance)
	}
	if got := event.Params["owner"].(common.Address); got != owner {
		t.Fatalf("owner mismatch: %s", got.Hex())
	}
	if got := event.Params["spender"].(common.Address); got != spender {
		t.Fatalf("spender mismatch: %s", got.Hex())
	}
	if got := event.Params["value"].(*big.Int); got.Cmp(value) != 0 {
		t.Fatalf("value mismatch: %s", got)
	}
}

func TestDecodeSignatureMismatch(t *testing.T) {
	decoder, err := NewDecoder(eventabi.ERC20Approval)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	transfer := eventabi.Event{
		Name: "Transfer",
		Inputs: []eventabi.Param{
			{Name: "from", Type: "address", Indexed: true},
			{Name: "to", Type: "address", Indexed: true},
			{Name: "value", Type: "uint256", Indexed: false},
		},
	}

	record := buildLogRecord(common.Address{}, transfer.ID(), []common.Hash{{}, {}}, make([]byte, 32))

	if _, err := decoder.Decode(record); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestDecodeMalformedLog(t *testing.T) {
	decoder, err := NewDecoder(eventabi.ERC20Approval)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	// Missing the spender topic.
	record := buildLogRecord(common.Address{}, decoder.SignatureHash(), []common.Hash{{}}, make([]byte, 32))
	if _, err := decoder.Decode(record); !errors.Is(err, ErrMalformedLog) {
		t.Fatalf("expected ErrMalformedLog for topic count, got %v", err)
	}

	// Data payload is one byte short of a word.
	record = buildLogRecord(common.Address{}, decoder.SignatureHash(), []common.Hash{{}, {}}, make([]byte, 31))
	if _, err := decoder.Decode(record); !errors.Is(err, ErrMalformedLog) {
		t.Fatalf("expected ErrMalformedLog for data length, got %v", err)
	}

	record = buildLogRecord(common.Address{}, decoder.SignatureHash(), []common.Hash{{}, {}}, make([]byte, 32))
	record.Topics = nil
	if _, err := decoder.Decode(record); !errors.Is(err, ErrMalformedLog) {
		t.Fatalf("expected ErrMalformedLog for missing topics, got %v", err)
	}
}

func TestDecodeRejectsDynamicTypes(t *testing.T) {
	event := eventabi.Event{
		Name: "URI",
		Inputs: []eventabi.Param{
			{Name: "value", Type: "string", Indexed: false},
			{Name: "id", Type: "uint256", Indexed: true},
		},
	}

	_, err := NewDecoder(event)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}

	odd := eventabi.Event{
		Name:   "Odd",
		Inputs: []eventabi.Param{{Name: "x", Type: "uint7", Indexed: false}},
	}
	if _, err := NewDecoder(odd); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType for uint7, got %v", err)
	}
}

func TestDecodeBoolAndSmallUint(t *testing.T) {
	event := eventabi.Event{
		Name: "Frozen",
		Inputs: []eventabi.Param{
			{Name: "account", Type: "address", Indexed: true},
			{Name: "frozen", Type: "bool", Indexed: false},
			{Name: "level", Type: "uint8", Indexed: false},
		},
	}

	decoder, err := NewDecoder(event)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	account := common.HexToAddress("0x3333333333333333333333333333333333333333")
	data := make([]byte, 64)
	data[31] = 1  // frozen = true
	data[63] = 42 // level = 42

	record := buildLogRecord(common.Address{}, decoder.SignatureHash(), []common.Hash{addressTopic(account)}, data)

	decoded, err := decoder.Decode(record)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frozen := decoded.Params["frozen"].(bool); !frozen {
		t.Fatalf("frozen must be true")
	}
	if level := decoded.Params["level"].(*big.Int); level.Int64() != 42 {
		t.Fatalf("level mismatch: %s", level)
	}
}
