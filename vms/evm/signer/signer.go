// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/luxfi/wager/utils"
)

var ErrEmptyKey = errors.New("empty private key")

type Signer interface {
	SignTx(tx *types.Transaction, evmChainID *big.Int) (*types.Transaction, error)
	Address() common.Address
}

// TxSigner signs with an in-memory secp256k1 key.
type TxSigner struct {
	pk      *ecdsa.PrivateKey
	address common.Address
}

// NewTxSigner parses a hex private key, with or without a 0x prefix.
func NewTxSigner(pk string) (*TxSigner, error) {
	pk = utils.SanitizeHexString(pk)
	if pk == "" {
		return nil, ErrEmptyKey
	}
	key, err := crypto.HexToECDSA(pk)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &TxSigner{
		pk:      key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func NewTxSigners(pks []string) ([]Signer, error) {
	var signers []Signer
	for _, pk := range pks {
		signer, err := NewTxSigner(pk)
		if err != nil {
			return signers, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

func (s *TxSigner) SignTx(tx *types.Transaction, evmChainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(evmChainID), s.pk)
}

func (s *TxSigner) Address() common.Address {
	return s.address
}
