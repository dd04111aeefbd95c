package decoder

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
)

// AddressValidator checks the addresses carried by send-to-eth messages.
type AddressValidator struct {
	prefix string
}

// NewAddressValidator validates senders against the bech32 prefix.
func NewAddressValidator(prefix string) *AddressValidator {
	return &AddressValidator{prefix: prefix}
}

// Sender checks a bech32 account address.
func (v *AddressValidator) Sender(addr string) error {
	hrp, _, err := bech32.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid sender %q: %w", addr, err)
	}
	if hrp != v.prefix {
		return fmt.Errorf("invalid sender %q: prefix %q, want %q", addr, hrp, v.prefix)
	}
	return nil
}

// EthDest checks a hex Ethereum address.
func (v *AddressValidator) EthDest(addr string) error {
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("invalid eth destination %q", addr)
	}
	return nil
}
