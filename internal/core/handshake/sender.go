package handshake

import (
	"context"

	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// EnvelopeSender 在请求-响应通道上发送信封
type EnvelopeSender interface {
	SendEnvelope(ctx context.Context, to types.PeerID, env *Envelope) error
}

// TransportSender 基于 Transport 单播通道的 EnvelopeSender
type TransportSender struct {
	t pkgif.Transport
}

// NewTransportSender 创建 TransportSender
func NewTransportSender(t pkgif.Transport) *TransportSender {
	return &TransportSender{t: t}
}

// SendEnvelope 编码并单播信封
func (s *TransportSender) SendEnvelope(ctx context.Context, to types.PeerID, env *Envelope) error {
	return s.t.Send(ctx, to, env.Encode())
}
