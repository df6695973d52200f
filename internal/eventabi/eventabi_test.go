package eventabi

import (
	"testing"
)

const approvalTopic0 = "0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"

func TestSignatureExcludesNamesAndIndexed(t *testing.T) {
	base := Event{
		Name: "Approval",
		Inputs: []Param{
			{Name: "owner", Type: "address", Indexed: true},
			{Name: "spender", Type: "address", Indexed: true},
			{Name: "value", Type: "uint256", Indexed: false},
		},
	}

	renamed := Event{
		Name: "Approval",
		Inputs: []Param{
			{Name: "a", Type: "address", Indexed: false},
			{Name: "b", Type: "address", Indexed: false},
			{Name: "c", Type: "uint256", Indexed: true},
		},
	}

	if base.Signature() != "Approval(address,address,uint256)" {
		t.Fatalf("signature mismatch: %s", base.Signature())
	}
	if base.Signature() != renamed.Signature() {
		t.Fatalf("signature must ignore names and indexed flags: %s != %s", base.Signature(), renamed.Signature())
	}
	if base.ID() != renamed.ID() {
		t.Fatalf("hash must be a pure function of the signature")
	}
}

func TestApprovalKnownHash(t *testing.T) {
	got := ERC20Approval.ID().Hex()
	if got != approvalTopic0 {
		t.Fatalf("approval topic0 mismatch: got %s want %s", got, approvalTopic0)
	}
	if again := ERC20Approval.ID().Hex(); again != got {
		t.Fatalf("hash must be deterministic: %s != %s", again, got)
	}
}

func TestParseJSONSingleEvent(t *testing.T) {
	doc := `{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "owner", "type": "address"},
			{"indexed": true, "name": "spender", "type": "address"},
			{"indexed": false, "name": "value", "type": "uint256"}
		],
		"name": "Approval",
		"type": "event"
	}`

	event, err := ParseJSON([]byte(doc), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Signature() != ERC20Approval.Signature() {
		t.Fatalf("signature mismatch: %s", event.Signature())
	}
	if event.ID() != ERC20Approval.ID() {
		t.Fatalf("hash mismatch: %s", event.ID().Hex())
	}
}

func TestParseJSONContractABI(t *testing.T) {
	doc := `[
		{"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
		{
			"anonymous": false,
			"inputs": [
				{"indexed": true, "name": "from", "type": "address"},
				{"indexed": true, "name": "to", "type": "address"},
				{"indexed": false, "name": "value", "type": "uint256"}
			],
			"name": "Transfer",
			"type": "event"
		},
		{
			"anonymous": false,
			"inputs": [
				{"indexed": true, "name": "owner", "type": "address"},
				{"indexed": true, "name": "spender", "type": "address"},
				{"indexed": false, "name": "value", "type": "uint256"}
			],
			"name": "Approval",
			"type": "event"
		}
	]`

	event, err := ParseJSON([]byte(doc), "Approval")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.ID().Hex() != approvalTopic0 {
		t.Fatalf("approval topic0 mismatch: %s", event.ID().Hex())
	}

	if _, err := ParseJSON([]byte(doc), ""); err == nil {
		t.Fatalf("expected error for ambiguous event selection")
	}
	if _, err := ParseJSON([]byte(doc), "Mint"); err == nil {
		t.Fatalf("expected error for missing event")
	}
}
