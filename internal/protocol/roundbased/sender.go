package roundbased

import (
	"context"
	"sync"

	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// Sender 适配器的发送半部
//
// 可并发调用 Send。消息编号按协议标签独立计数，从 0 开始。
type Sender[M RoundMessage] struct {
	protocol  string
	self      types.PartyIndex
	localPeer types.PeerID
	codec     Codec[M]
	resolver  pkgif.PeerResolver

	loopback *LoopbackPort
	unicast  NetworkPort
	gossip   NetworkPort

	loopbackBroadcast bool

	mu  sync.Mutex
	ids map[string]uint64

	stats *counters
}

// nextID 返回标签的下一个消息编号
func (s *Sender[M]) nextID(tag string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids[tag]
	s.ids[tag] = id + 1
	return id
}

// Send 发送一条消息
//
// 失败时返回 *RouteError，不做重试。
func (s *Sender[M]) Send(ctx context.Context, out Outgoing[M]) error {
	round := out.Msg.Round()
	tag := types.ProtocolTag(s.protocol, round)

	payload, err := s.codec.Marshal(out.Msg)
	if err != nil {
		return &RouteError{Kind: ErrSerialization, Tag: tag, Dest: out.Recipient, Err: err}
	}

	if out.Recipient.IsBroadcast() {
		msg := &types.ProtocolMessage{
			ProtocolTag: tag,
			Routing:     types.MessageRouting{MessageID: s.nextID(tag), RoundID: round, Sender: s.localPeer},
			Payload:     payload,
		}
		if err := s.gossip.Deliver(ctx, msg); err != nil {
			return &RouteError{Kind: ErrTransportSend, Tag: tag, Dest: out.Recipient, Err: err}
		}
		s.stats.sentBroadcast.Add(1)

		if s.loopbackBroadcast {
			if err := s.loopback.Deliver(ctx, msg); err != nil {
				return &RouteError{Kind: ErrTransportSend, Tag: tag, Dest: out.Recipient, Err: err}
			}
			s.stats.sentLoopback.Add(1)
		}
		return nil
	}

	party, _ := out.Recipient.Party()
	if party == s.self {
		local := s.localPeer
		msg := &types.ProtocolMessage{
			ProtocolTag: tag,
			Routing:     types.MessageRouting{MessageID: s.nextID(tag), RoundID: round, Sender: local, Recipient: &local},
			Payload:     payload,
		}
		if err := s.loopback.Deliver(ctx, msg); err != nil {
			return &RouteError{Kind: ErrTransportSend, Tag: tag, Dest: out.Recipient, Err: err}
		}
		s.stats.sentLoopback.Add(1)
		return nil
	}

	peer, ok := s.resolver.PeerOf(party)
	if !ok {
		return &RouteError{Kind: ErrUnresolvedPeerIndex, Tag: tag, Dest: out.Recipient}
	}
	msg := &types.ProtocolMessage{
		ProtocolTag: tag,
		Routing:     types.MessageRouting{MessageID: s.nextID(tag), RoundID: round, Sender: s.localPeer, Recipient: &peer},
		Payload:     payload,
	}
	if err := s.unicast.Deliver(ctx, msg); err != nil {
		return &RouteError{Kind: ErrTransportSend, Tag: tag, Dest: out.Recipient, Err: err}
	}
	s.stats.sentP2P.Add(1)
	return nil
}
