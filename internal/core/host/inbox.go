package host

import (
	"context"
	"errors"

	"github.com/dep2p/go-roundnet/internal/util/queue"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

var _ pkgif.Inbox = (*inbox)(nil)

// inbox 单个协议的入站队列
type inbox struct {
	protocol string
	q        *queue.Queue[*types.ProtocolMessage]
}

func newInbox(protocol string, capacity int) *inbox {
	return &inbox{
		protocol: protocol,
		q:        queue.New[*types.ProtocolMessage](capacity),
	}
}

// Next 阻塞等待下一条消息
func (i *inbox) Next(ctx context.Context) (*types.ProtocolMessage, error) {
	msg, err := i.q.Pop(ctx)
	if errors.Is(err, queue.ErrClosed) {
		return nil, types.ErrTransportClosed
	}
	return msg, err
}

// Inbox 返回协议的入站队列，不存在时创建
func (h *Host) Inbox(protocol string) pkgif.Inbox {
	return h.inbox(protocol)
}

func (h *Host) inbox(protocol string) *inbox {
	h.inboxMu.Lock()
	defer h.inboxMu.Unlock()

	ib, ok := h.inboxes[protocol]
	if !ok {
		ib = newInbox(protocol, h.cfg.InboxCapacity)
		if h.closed.Load() {
			ib.q.Close()
		}
		h.inboxes[protocol] = ib
	}
	return ib
}

// deliver 把消息放入其协议的入站队列
func (h *Host) deliver(msg *types.ProtocolMessage) bool {
	protocol := msg.Protocol()
	if protocol == "" {
		h.stats.unrouted.Add(1)
		logger.Debug("协议标签无效，丢弃消息", "tag", msg.ProtocolTag)
		return false
	}

	dropped, err := h.inbox(protocol).q.Push(msg)
	if err != nil {
		return false
	}
	if dropped > 0 {
		h.stats.inboxDropped.Add(uint64(dropped))
		logger.Warn("入站队列已满，丢弃最旧消息", "protocol", protocol, "dropped", dropped)
	}
	return true
}

func (h *Host) closeInboxes() {
	h.inboxMu.Lock()
	defer h.inboxMu.Unlock()
	for _, ib := range h.inboxes {
		ib.q.Close()
	}
}
