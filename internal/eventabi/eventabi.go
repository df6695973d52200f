// Package eventabi describes event ABIs and derives their log signatures.
package eventabi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Param is a single event parameter in declaration order.
type Param struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed"`
}

// Event describes an event ABI. Parameter order is significant and must
// match the on-chain emission order.
type Event struct {
	Name      string  `json:"name"`
	Inputs    []Param `json:"inputs"`
	Anonymous bool    `json:"anonymous"`
}

// Signature returns the canonical textual signature, e.g.
// "Approval(address,address,uint256)". Parameter names and the indexed
// flag are excluded.
func (e Event) Signature() string {
	types := make([]string, 0, len(e.Inputs))
	for _, input := range e.Inputs {
		types = append(types, input.Type)
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(types, ","))
}

// ID returns the Keccak-256 digest of the signature bytes. The digest is
// used verbatim as topic0 of a matching log.
func (e Event) ID() common.Hash {
	return crypto.Keccak256Hash([]byte(e.Signature()))
}

// ERC20Approval is the standard ERC-20 Approval event.
var ERC20Approval = Event{
	Name: "Approval",
	Inputs: []Param{
		{Name: "owner", Type: "address", Indexed: true},
		{Name: "spender", Type: "address", Indexed: true},
		{Name: "value", Type: "uint256", Indexed: false},
	},
}

type abiEntry struct {
	Type      string  `json:"type"`
	Name      string  `json:"name"`
	Inputs    []Param `json:"inputs"`
	Anonymous bool    `json:"anonymous"`
}

// ParseJSON loads an event description from an externally supplied ABI
// document. The document may be a single event object or a full contract
// ABI array; in the latter case name selects which event to use, and an
// empty name picks the only event present.
func ParseJSON(data []byte, name string) (Event, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var entry abiEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return Event{}, fmt.Errorf("parse abi: %w", err)
		}
		return eventFromEntry(entry, name)
	}

	var entries []abiEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return Event{}, fmt.Errorf("parse abi: %w", err)
	}

	var events []abiEntry
	for _, entry := range entries {
		if entry.Type != "event" {
			continue
		}
		if name != "" && entry.Name != name {
			continue
		}
		events = append(events, entry)
	}

	switch len(events) {
	case 0:
		if name != "" {
			return Event{}, fmt.Errorf("event %q not found in abi", name)
		}
		return Event{}, fmt.Errorf("no event found in abi")
	case 1:
		return eventFromEntry(events[0], "")
	default:
		return Event{}, fmt.Errorf("abi contains %d events, event name is required", len(events))
	}
}

func eventFromEntry(entry abiEntry, name string) (Event, error) {
	if entry.Type != "" && entry.Type != "event" {
		return Event{}, fmt.Errorf("abi entry type %q is not an event", entry.Type)
	}
	if entry.Name == "" {
		return Event{}, fmt.Errorf("event name is empty")
	}
	if name != "" && entry.Name != name {
		return Event{}, fmt.Errorf("event %q not found in abi", name)
	}
	return Event{
		Name:      entry.Name,
		Inputs:    entry.Inputs,
		Anonymous: entry.Anonymous,
	}, nil
}
