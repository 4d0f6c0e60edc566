package handshake_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dep2p/go-roundnet/internal/core/handshake"
	"github.com/dep2p/go-roundnet/internal/core/registry"
	"github.com/dep2p/go-roundnet/pkg/types"
	"github.com/dep2p/go-roundnet/tests/mocks"
)

// TestCoordinator_InitiateSendFailure 测试请求发送失败时对端标记为 Failed
func TestCoordinator_InitiateSendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockEnvelopeSender(ctrl)

	signer := mocks.NewMockSigner([]byte("local-key"))
	remote := types.PeerIDFromPublicKey([]byte("remote-key"))
	co := handshake.New(handshake.DefaultConfig(), signer, &mocks.MockVerifier{}, registry.New(), sender)

	sendErr := errors.New("connection refused")
	sender.EXPECT().
		SendEnvelope(gomock.Any(), remote, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ types.PeerID, env *handshake.Envelope) error {
			assert.Equal(t, handshake.KindRequest, env.Kind)
			assert.Equal(t, []byte("local-key"), env.PublicKey)
			assert.NotEmpty(t, env.AttemptID)
			return sendErr
		})

	err := co.Initiate(context.Background(), remote)
	require.ErrorIs(t, err, sendErr)
	assert.Equal(t, types.HandshakeFailed, co.State(remote))
	assert.ErrorIs(t, co.FailureReason(remote), sendErr)
}

// TestCoordinator_ResponseSent 测试合法请求得到签名响应
func TestCoordinator_ResponseSent(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockEnvelopeSender(ctrl)

	signer := mocks.NewMockSigner([]byte("local-key"))
	remoteKey := []byte("remote-key")
	remote := types.PeerIDFromPublicKey(remoteKey)
	reg := registry.New()
	co := handshake.New(handshake.DefaultConfig(), signer, &mocks.MockVerifier{}, reg, sender)

	sender.EXPECT().
		SendEnvelope(gomock.Any(), remote, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ types.PeerID, env *handshake.Envelope) error {
			assert.Equal(t, handshake.KindResponse, env.Kind)
			assert.Equal(t, "attempt-7", env.AttemptID)
			assert.Equal(t, []byte("mock-signature"), env.Signature)
			return nil
		}).
		Times(1)

	req := &handshake.Envelope{Kind: handshake.KindRequest, AttemptID: "attempt-7", PublicKey: remoteKey, Signature: []byte("sig")}
	require.NoError(t, co.HandleEnvelope(context.Background(), remote, req))
	assert.True(t, reg.IsVerified(remote))
	assert.Equal(t, 1, signer.SignCalls)
}
