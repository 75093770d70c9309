package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/ports/adapter"
)

// Compile-time checks
var (
	_ adapter.TxSigner       = (*LocalSigner)(nil)
	_ adapter.SignerRegistry = (*LocalRegistry)(nil)
)

// LocalSigner signs with an in-process private key. Used for the operator
// wallet and for development setups; production performer keys live in an
// external custody service that implements the same interface.
type LocalSigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func NewLocalSigner(hexKey string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &LocalSigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *LocalSigner) Address() string { return s.addr.Hex() }

func (s *LocalSigner) SignTx(_ context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// LocalRegistry resolves signers for wallets whose keys were loaded at
// startup. Lookup is by derived address, case-insensitive.
type LocalRegistry struct {
	signers map[common.Address]adapter.TxSigner
}

func NewLocalRegistry(hexKeys []string) (*LocalRegistry, error) {
	r := &LocalRegistry{signers: make(map[common.Address]adapter.TxSigner, len(hexKeys))}
	for _, hk := range hexKeys {
		s, err := NewLocalSigner(hk)
		if err != nil {
			return nil, err
		}
		r.signers[s.addr] = s
	}
	return r, nil
}

func (r *LocalRegistry) SignerFor(_ context.Context, wallet string) (adapter.TxSigner, error) {
	s, ok := r.signers[common.HexToAddress(wallet)]
	if !ok {
		return nil, fmt.Errorf("no signer for wallet %s: %w", wallet, domain.ErrNotFound)
	}
	return s, nil
}
