// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package mockfhe

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wager/crypto/fhe"
)

func TestHandleLayout(t *testing.T) {
	require := require.New(t)

	backend := New()
	require.NoError(backend.Init(context.Background()))
	inst, err := backend.CreateInstance(context.Background(), fhe.SepoliaConfig)
	require.NoError(err)

	in := inst.CreateEncryptedInput(common.Address{1}, common.Address{2})
	in.Add8(3)
	in.Add64(42)
	out, err := in.Encrypt(context.Background())
	require.NoError(err)
	require.Len(out.Handles, 2)

	for i, h := range out.Handles {
		require.Len(h, fhe.HandleLen)
		require.Equal(byte(i), h[21])
		require.Equal(fhe.SepoliaConfig.ChainID, binary.BigEndian.Uint64(h[22:30]))
		require.Equal(handleVersion, h[31])
	}
	require.Equal(typeUint8, out.Handles[0][30])
	require.Equal(typeUint64, out.Handles[1][30])

	require.Len(out.Proof, 2+2*fhe.HandleLen+32)
	require.Equal(byte(2), out.Proof[0])
	require.Equal(out.Handles[0], out.Proof[2:2+fhe.HandleLen])

	initCalls, instanceCalls := backend.Calls()
	require.Equal(1, initCalls)
	require.Equal(1, instanceCalls)
}

func TestEncryptEmptyInput(t *testing.T) {
	inst, err := New().CreateInstance(context.Background(), fhe.LocalConfig)
	require.NoError(t, err)

	_, err = inst.CreateEncryptedInput(common.Address{}, common.Address{}).Encrypt(context.Background())
	require.ErrorIs(t, err, errNoFields)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := New()
	require.ErrorIs(t, backend.Init(ctx), context.Canceled)
	_, err := backend.CreateInstance(ctx, fhe.LocalConfig)
	require.ErrorIs(t, err, context.Canceled)
}
