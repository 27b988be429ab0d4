// Package genesis parses and validates the genesis document (spec.md §6)
// and builds the genesis block and initial world state from it.
//
// The document is JSON, decoded with json-iterator rather than the
// hand-rolled canonical codec: it is read once at startup, never
// hashed or signed over, so there is no byte-stability requirement —
// exactly the boundary DESIGN.md draws for when json-iterator is
// appropriate and the canonical binary codec is not.
package genesis

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/tinynode/tinynode/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AccountEntry is one entry of the genesis document's "accounts" array.
type AccountEntry struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// Doc is the genesis document as specified in spec.md §6.
type Doc struct {
	Timestamp  uint64         `json:"timestamp"`
	Validators []string       `json:"validators"`
	Accounts   []AccountEntry `json:"accounts"`
}

// Load reads and parses a genesis document from path.
func Load(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "genesis: read file")
	}
	return Parse(data)
}

// Parse decodes a genesis document from its JSON representation.
func Parse(data []byte) (*Doc, error) {
	doc := &Doc{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(err, "genesis: decode json")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks structural well-formedness: every address is exactly 32
// bytes of lowercase hex, the validator set is non-empty, and no address
// appears twice in the accounts list.
func (d *Doc) Validate() error {
	if len(d.Validators) == 0 {
		return ErrNoValidators
	}
	seenValidators := make(map[string]struct{}, len(d.Validators))
	for _, v := range d.Validators {
		if _, err := types.AddressFromHex(v); err != nil {
			return errors.Wrapf(err, "genesis: invalid validator address %q", v)
		}
		if _, dup := seenValidators[v]; dup {
			return errors.Errorf("genesis: duplicate validator address %q", v)
		}
		seenValidators[v] = struct{}{}
	}
	seenAccounts := make(map[string]struct{}, len(d.Accounts))
	for _, a := range d.Accounts {
		if _, err := types.AddressFromHex(a.Address); err != nil {
			return errors.Wrapf(err, "genesis: invalid account address %q", a.Address)
		}
		if _, dup := seenAccounts[a.Address]; dup {
			return errors.Errorf("genesis: duplicate account address %q", a.Address)
		}
		seenAccounts[a.Address] = struct{}{}
	}
	return nil
}

// ValidatorSet decodes the ordered validator address list. Order defines
// the round-robin proposer schedule (spec.md §6).
func (d *Doc) ValidatorSet() ([]types.Address, error) {
	out := make([]types.Address, len(d.Validators))
	for i, v := range d.Validators {
		addr, err := types.AddressFromHex(v)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

// InitialAccounts decodes the initial account balances.
func (d *Doc) InitialAccounts() (map[types.Address]*types.Account, error) {
	out := make(map[types.Address]*types.Account, len(d.Accounts))
	for _, a := range d.Accounts {
		addr, err := types.AddressFromHex(a.Address)
		if err != nil {
			return nil, err
		}
		out[addr] = &types.Account{Balance: a.Balance, Nonce: a.Nonce}
	}
	return out, nil
}

// Block builds the genesis block: height 0, zero parent, empty
// transactions, tx_root = zero, validator = first entry of the validator
// set, and a structurally-present-but-never-verified-as-proposer-authentic
// signature — the self-certifying anchor of spec.md §3/§9 Open Question 1.
func (d *Doc) Block() (*types.Block, error) {
	validators, err := d.ValidatorSet()
	if err != nil {
		return nil, err
	}
	header := &types.Header{
		ParentHash:  types.ZeroHash,
		BlockNumber: 0,
		Timestamp:   d.Timestamp,
		TxRoot:      types.ZeroHash,
		Validator:   validators[0],
		// Signature is left zero: genesis is self-certifying, never
		// checked against a proposer schedule or verified as a real
		// Ed25519 signature (spec.md §9 Open Question 1).
	}
	return types.NewBlock(header, nil), nil
}
