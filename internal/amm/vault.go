package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/blake3"
)

// Capability authorizes the TransferGateway to move value out of an account.
// It is derived deterministically from the account identity, never stored:
// any holder of the identity can re-derive it, mirroring a program-derived
// signing authority.
type Capability [32]byte

const (
	capabilityDomain = "phbt/capability/v1"
	vaultDomain      = "phbt/pool-vault/v1"
)

// CapabilityFor derives the transfer capability for an account.
func CapabilityFor(account common.Address) Capability {
	h := blake3.New()
	h.Write([]byte(capabilityDomain))
	h.Write(account.Bytes())

	var c Capability
	h.Digest().Read(c[:])
	return c
}

// VaultAddress derives the address of the vault that holds a pool's reserves.
// The nonce keeps the derivation opaque to callers; it carries no ownership
// significance.
func VaultAddress(token common.Address, nonce uint8) common.Address {
	h := blake3.New()
	h.Write([]byte(vaultDomain))
	h.Write(token.Bytes())
	h.Write([]byte{nonce})

	var digest [32]byte
	h.Digest().Read(digest[:])
	return common.BytesToAddress(digest[12:])
}

// DeriveNonce produces the pool's derivation nonce from its token identity.
func DeriveNonce(token common.Address) uint8 {
	sum := blake3.Sum256(token.Bytes())
	return sum[31]
}
