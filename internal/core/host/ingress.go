package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/dep2p/go-roundnet/internal/core/dedup"
	"github.com/dep2p/go-roundnet/internal/core/handshake"
	"github.com/dep2p/go-roundnet/internal/core/wire"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// ingressLoop 逐个处理传输事件，直到传输关闭
func (h *Host) ingressLoop(ctx context.Context) error {
	for {
		ev, err := h.transport.Next(ctx)
		if err != nil {
			if isClosedErr(ctx, err) {
				return nil
			}
			return err
		}
		h.handleEvent(ctx, ev)
	}
}

func (h *Host) handleEvent(ctx context.Context, ev types.TransportEvent) {
	switch ev.Kind {
	case types.EventConnected:
		logger.Debug("对端已连接", "peer", ev.From.ShortString())
		if h.cfg.AutoInitiate {
			h.initiate(ctx, ev.From)
		}
	case types.EventDisconnected:
		logger.Debug("对端已断开", "peer", ev.From.ShortString())
		h.coordinator.Forget(ev.From)
	case types.EventFrame:
		h.stats.ingressFrames.Add(1)
		switch ev.Channel {
		case types.ChannelDirect:
			h.handleDirect(ctx, ev.From, ev.Data)
		case types.ChannelGossip:
			if ev.Topic == h.cfg.Topic {
				h.handleGossip(ctx, ev.From, ev.Data)
			}
		}
	}
}

func (h *Host) initiate(ctx context.Context, peer types.PeerID) {
	if err := h.coordinator.Initiate(ctx, peer); err != nil {
		logger.Warn("发起握手失败", "peer", peer.ShortString(), "err", err)
	}
}

// handleDirect 处理请求-响应通道上的信封
func (h *Host) handleDirect(ctx context.Context, from types.PeerID, data []byte) {
	env, err := handshake.DecodeEnvelope(data)
	if err != nil {
		h.stats.decodeErrors.Add(1)
		logger.Debug("信封解码失败", "peer", from.ShortString(), "err", err)
		return
	}

	if env.IsHandshake() {
		if err := h.coordinator.HandleEnvelope(ctx, from, env); err != nil {
			logger.Debug("握手信封处理失败", "peer", from.ShortString(), "err", err)
		}
		return
	}

	if !h.registry.IsVerified(from) {
		h.stats.rejectedUnverified.Add(1)
		h.coordinator.RejectUnverified(ctx, from)
		return
	}

	msg, err := wire.DecodeMessage(env.Payload)
	if err != nil {
		h.stats.decodeErrors.Add(1)
		logger.Debug("协议消息解码失败", "peer", from.ShortString(), "err", err)
		return
	}
	if msg.Routing.Sender != from {
		h.stats.identityMismatch.Add(1)
		logger.Warn("消息发送方与来源不符", "peer", from.ShortString(), "sender", msg.Routing.Sender.ShortString())
		return
	}
	if msg.Routing.Recipient == nil || *msg.Routing.Recipient != h.LocalPeer() {
		h.stats.misaddressed.Add(1)
		logger.Debug("单播消息接收方不是本节点", "peer", from.ShortString())
		return
	}

	if h.deliver(msg) {
		h.stats.directDelivered.Add(1)
	}
}

// handleGossip 处理主题帧
//
// 传播源必须已验证；先校验来源再去重，未验证来源的帧不会占用去重记录。
// 作者由签名确定：公钥必须派生出消息的发送方并属于会话参与方。
func (h *Host) handleGossip(ctx context.Context, from types.PeerID, data []byte) {
	if !h.registry.IsVerified(from) {
		h.stats.rejectedUnverified.Add(1)
		logger.Warn("丢弃未验证传播源的 gossip", "peer", from.ShortString())
		return
	}

	if !h.dedup.CheckAndMark(dedup.HashMessage(data)) {
		h.stats.duplicates.Add(1)
		return
	}

	msg, err := h.openGossip(data)
	if errors.Is(err, ErrForgedAuthor) {
		h.stats.forgedAuthor.Add(1)
		logger.Warn("丢弃作者签名无效的 gossip", "peer", from.ShortString(), "err", err)
		return
	}
	if err != nil {
		h.stats.decodeErrors.Add(1)
		logger.Debug("gossip 消息解码失败", "peer", from.ShortString(), "err", err)
		return
	}
	if msg.Routing.Sender == h.LocalPeer() {
		return
	}

	if h.cfg.Regossip {
		if err := h.transport.Publish(ctx, h.cfg.Topic, data); err != nil {
			h.dedup.RecordSendFailure()
			logger.Debug("转发 gossip 失败", "err", err)
		} else {
			h.dedup.RecordRegossip()
		}
	}

	if msg.Routing.Recipient != nil {
		h.stats.misaddressed.Add(1)
		return
	}
	if h.deliver(msg) {
		h.stats.gossipDelivered.Add(1)
	}
}

// openGossip 解码签名消息并校验作者
func (h *Host) openGossip(data []byte) (*types.ProtocolMessage, error) {
	signed, err := wire.DecodeSigned(data)
	if err != nil {
		return nil, err
	}
	msg, err := wire.DecodeMessage(signed.Message)
	if err != nil {
		return nil, err
	}

	if types.PeerIDFromPublicKey(signed.PublicKey) != msg.Routing.Sender {
		return nil, fmt.Errorf("%w: key does not match sender %s", ErrForgedAuthor, msg.Routing.Sender.ShortString())
	}
	if !h.registry.IsAllowed(signed.PublicKey) {
		return nil, fmt.Errorf("%w: %s is not a session party", ErrForgedAuthor, msg.Routing.Sender.ShortString())
	}
	ok, err := h.verifier.Verify(signed.PublicKey, wire.AuthorChallenge(h.cfg.Topic, signed.Message), signed.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForgedAuthor, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: bad signature from %s", ErrForgedAuthor, msg.Routing.Sender.ShortString())
	}
	return msg, nil
}
