// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

//go:generate mockgen -source=$GOFILE -destination=./mocks/mock_backend.go -package=mocks

// Package fhe wraps an external fully homomorphic encryption backend: the
// runtime that turns plaintext forecast fields into ciphertext handles plus a
// zero-knowledge input proof the WeatherWagerBook contract verifies.
package fhe

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// HandleLen is the size of a ciphertext handle.
const HandleLen = 32

// Backend loads the encryption runtime and creates instances from it.
// Implementations must honor context cancellation.
type Backend interface {
	// Init loads the backend runtime. It is called before every instance
	// creation attempt and must be idempotent.
	Init(ctx context.Context) error

	// CreateInstance instantiates the backend against a network's published
	// configuration.
	CreateInstance(ctx context.Context, network NetworkConfig) (Instance, error)
}

// Instance is a ready backend. Instances are read-shared by all callers.
type Instance interface {
	// CreateEncryptedInput opens a per-call input builder. The resulting
	// ciphertexts are bound to both addresses.
	CreateEncryptedInput(contractAddress, userAddress common.Address) InputBuilder
}

// InputBuilder accumulates plaintext fields in order and encrypts them once.
type InputBuilder interface {
	Add8(value uint8)
	Add64(value uint64)

	// Encrypt returns one handle per added field, in order, and one proof
	// attesting to all of them.
	Encrypt(ctx context.Context) (*EncryptedInput, error)
}

// EncryptedInput is the raw output of InputBuilder.Encrypt.
type EncryptedInput struct {
	Handles [][]byte
	Proof   []byte
}

// NetworkConfig is the published configuration an instance is created against.
type NetworkConfig struct {
	Name                  string         `json:"name"`
	ChainID               uint64         `json:"chainId"`
	GatewayChainID        uint64         `json:"gatewayChainId"`
	RelayerURL            string         `json:"relayerUrl"`
	ACLContract           common.Address `json:"aclContractAddress"`
	KMSContract           common.Address `json:"kmsContractAddress"`
	InputVerifierContract common.Address `json:"inputVerifierContractAddress"`
}

var (
	// SepoliaConfig is the encryption network backing the Sepolia deployment.
	SepoliaConfig = NetworkConfig{
		Name:        "sepolia",
		ChainID:     11155111,
		RelayerURL:  "https://gateway.sepolia.zama.ai",
		ACLContract: common.HexToAddress("0x687820221192C5B662b25367F70076A37bc79b6c"),
		KMSContract: common.HexToAddress("0x1364cBBf2cDF5032C47d8226a6f6FBD2AFCDacAC"),
	}

	// LocalConfig targets a development chain running the mock runtime.
	LocalConfig = NetworkConfig{
		Name:    "local",
		ChainID: 31337,
	}

	networks = map[string]NetworkConfig{
		SepoliaConfig.Name: SepoliaConfig,
		LocalConfig.Name:   LocalConfig,
	}

	ErrUnknownNetwork = errors.New("unknown encryption network")
)

// NetworkByName looks up a published network configuration.
func NetworkByName(name string) (NetworkConfig, error) {
	cfg, ok := networks[name]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return cfg, nil
}
