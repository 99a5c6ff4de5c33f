package crypto

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the bech32 human-readable part of an address.
type AddressPrefix string

const (
	// AccountPrefix is used for every account and module address.
	AccountPrefix AddressPrefix = "lqs"

	// AddressLength is the raw address size in bytes.
	AddressLength = 20
)

// Address is a 20-byte account identifier rendered as bech32. The zero value
// is the empty address and never owns funds.
type Address struct {
	prefix AddressPrefix
	raw    [AddressLength]byte
}

// NewAddress wraps raw bytes. It panics when b is not AddressLength bytes.
func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != AddressLength {
		panic("address must be 20 bytes long")
	}
	var addr Address
	addr.prefix = prefix
	copy(addr.raw[:], b)
	return addr
}

// AddressFromBytes builds an account address, rejecting malformed input.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	return NewAddress(AccountPrefix, b), nil
}

// ModuleAddress derives the deterministic account that holds a module's funds.
func ModuleAddress(name string) Address {
	digest := ethcrypto.Keccak256([]byte("module/" + name))
	return NewAddress(AccountPrefix, digest[len(digest)-AddressLength:])
}

func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	conv, err := bech32.ConvertBits(a.raw[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	prefix := a.prefix
	if prefix == "" {
		prefix = AccountPrefix
	}
	encoded, err := bech32.Encode(string(prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a copy of the raw address.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a.raw[:])
	return out
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a.raw == [AddressLength]byte{}
}

// Equal compares raw bytes; the prefix is presentation only.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.raw[:], other.raw[:])
}

// MarshalText implements encoding.TextMarshaler so addresses render as bech32
// in JSON payloads.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = Address{}
		return nil
	}
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if AddressPrefix(prefix) != AccountPrefix {
		return Address{}, fmt.Errorf("unexpected address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(conv))
	}
	return NewAddress(AccountPrefix, conv), nil
}
