// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

// Package mockfhe is an in-process encryption backend that produces handles
// and proofs in the layout of the fhEVM mock runtime. It performs no real
// encryption and is only accepted by development chains running that runtime.
package mockfhe

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/luxfi/wager/crypto/fhe"
)

// Ciphertext type tags carried in byte 30 of a handle.
const (
	typeUint8  byte = 2
	typeUint64 byte = 5

	handleVersion byte = 0
)

var errNoFields = errors.New("no fields added to encrypted input")

var _ fhe.Backend = (*Backend)(nil)

// Backend implements fhe.Backend.
type Backend struct {
	lock          sync.Mutex
	initCalls     int
	instanceCalls int
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.lock.Lock()
	b.initCalls++
	b.lock.Unlock()
	return nil
}

func (b *Backend) CreateInstance(ctx context.Context, network fhe.NetworkConfig) (fhe.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.lock.Lock()
	b.instanceCalls++
	b.lock.Unlock()
	return &instance{chainID: network.ChainID}, nil
}

// Calls reports how many times Init and CreateInstance ran.
func (b *Backend) Calls() (initCalls, instanceCalls int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.initCalls, b.instanceCalls
}

type instance struct {
	chainID uint64
}

func (i *instance) CreateEncryptedInput(contractAddress, userAddress common.Address) fhe.InputBuilder {
	return &input{
		chainID:  i.chainID,
		contract: contractAddress,
		user:     userAddress,
	}
}

type field struct {
	typ   byte
	value uint64
}

type input struct {
	chainID  uint64
	contract common.Address
	user     common.Address
	fields   []field
}

func (in *input) Add8(value uint8) {
	in.fields = append(in.fields, field{typ: typeUint8, value: uint64(value)})
}

func (in *input) Add64(value uint64) {
	in.fields = append(in.fields, field{typ: typeUint64, value: value})
}

// Encrypt derives each handle from a fresh random ciphertext digest so that
// two encryptions of the same plaintext never share handles. Handle layout:
// bytes [0,21) digest, 21 field index, [22,30) chain id, 30 type, 31 version.
// The proof is numHandles ‖ numSigners(0) ‖ handles ‖ ciphertext digest.
func (in *input) Encrypt(ctx context.Context) (*fhe.EncryptedInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(in.fields) == 0 {
		return nil, errNoFields
	}
	if len(in.fields) > 255 {
		return nil, fmt.Errorf("too many fields: %d", len(in.fields))
	}

	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to read randomness: %w", err)
	}
	ciphertext := make([]byte, 0, 32+2*common.AddressLength+9*len(in.fields))
	ciphertext = append(ciphertext, nonce[:]...)
	ciphertext = append(ciphertext, in.contract.Bytes()...)
	ciphertext = append(ciphertext, in.user.Bytes()...)
	for _, f := range in.fields {
		ciphertext = append(ciphertext, f.typ)
		ciphertext = binary.BigEndian.AppendUint64(ciphertext, f.value)
	}
	digest := crypto.Keccak256(ciphertext)

	handles := make([][]byte, len(in.fields))
	for i, f := range in.fields {
		h := crypto.Keccak256(digest, []byte{byte(i)})
		h[21] = byte(i)
		binary.BigEndian.PutUint64(h[22:30], in.chainID)
		h[30] = f.typ
		h[31] = handleVersion
		handles[i] = h
	}

	proof := make([]byte, 0, 2+fhe.HandleLen*len(handles)+len(digest))
	proof = append(proof, byte(len(handles)), 0)
	for _, h := range handles {
		proof = append(proof, h...)
	}
	proof = append(proof, digest...)

	return &fhe.EncryptedInput{
		Handles: handles,
		Proof:   proof,
	}, nil
}
