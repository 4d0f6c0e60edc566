package roundbased

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// Receiver 适配器的接收半部
//
// 同一时刻只允许一个 Recv 调用。Close 会释放进行中的 Recv。
type Receiver[M RoundMessage] struct {
	protocol  string
	self      types.PartyIndex
	localPeer types.PeerID
	codec     Codec[M]
	resolver  pkgif.PeerResolver
	inbox     pkgif.Inbox
	loopback  *LoopbackPort

	busy atomic.Bool

	// done 在 Close 时取消
	done      context.Context
	closeDone context.CancelFunc
	closeOnce sync.Once

	stats *counters
}

// Recv 等待下一条消息
//
// 回环消息优先于网络消息。发送方无法解析的网络消息被丢弃，Recv 继续等待。
func (r *Receiver[M]) Recv(ctx context.Context) (Incoming[M], error) {
	if !r.busy.CompareAndSwap(false, true) {
		return Incoming[M]{}, ErrConcurrentRecv
	}
	defer r.busy.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.done, cancel)
	defer stop()

	for {
		if r.done.Err() != nil {
			return Incoming[M]{}, ErrReceiverClosed
		}

		if msg, ok := r.loopback.q.TryPop(); ok {
			return r.decode(msg, r.self)
		}

		msg, err := r.nextNetwork(ctx)
		if err != nil {
			switch {
			case r.done.Err() != nil:
				return Incoming[M]{}, ErrReceiverClosed
			case ctx.Err() != nil:
				return Incoming[M]{}, ctx.Err()
			case errors.Is(err, types.ErrTransportClosed):
				return Incoming[M]{}, &ReceiveError{Kind: ErrTransportClosed, Tag: r.protocol}
			default:
				return Incoming[M]{}, &ReceiveError{Kind: ErrTransportClosed, Tag: r.protocol, Err: err}
			}
		}
		if msg == nil {
			// 回环队列有新消息
			continue
		}

		sender, ok := r.resolver.IndexOf(msg.Routing.Sender)
		if !ok {
			r.stats.droppedUnresolved.Add(1)
			logger.Debug("发送方无法解析，丢弃消息", "tag", msg.ProtocolTag, "sender", msg.Routing.Sender.ShortString())
			continue
		}
		return r.decode(msg, sender)
	}
}

// nextNetwork 读取网络入站队列，回环队列有消息时提前返回 (nil, nil)
func (r *Receiver[M]) nextNetwork(ctx context.Context) (*types.ProtocolMessage, error) {
	nctx, ncancel := context.WithCancel(ctx)
	defer ncancel()

	ready := r.loopback.q.Ready()
	go func() {
		select {
		case <-ready:
			ncancel()
		case <-nctx.Done():
		}
	}()

	msg, err := r.inbox.Next(nctx)
	if err != nil && ctx.Err() == nil && nctx.Err() != nil {
		return nil, nil
	}
	return msg, err
}

func (r *Receiver[M]) decode(msg *types.ProtocolMessage, sender types.PartyIndex) (Incoming[M], error) {
	m, err := r.codec.Unmarshal(msg.Payload)
	if err != nil {
		r.stats.decodeErrors.Add(1)
		return Incoming[M]{}, &ReceiveError{Kind: ErrDeserialization, Tag: msg.ProtocolTag, Sender: sender, Err: err}
	}
	r.stats.received.Add(1)
	return Incoming[M]{
		ID:     msg.Routing.MessageID,
		Sender: sender,
		Type:   msg.Type(),
		Msg:    m,
	}, nil
}

// Close 关闭 Receiver，进行中的 Recv 返回 ErrReceiverClosed
func (r *Receiver[M]) Close() error {
	r.closeOnce.Do(func() {
		r.closeDone()
		r.loopback.q.Close()
	})
	return nil
}
