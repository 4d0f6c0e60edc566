package mocks

import (
	"context"
	"sync"

	"github.com/dep2p/go-roundnet/pkg/types"
)

// MockTransport 模拟 Transport 接口实现
//
// 入站事件通过 Inject 注入，Next 按注入顺序返回。
type MockTransport struct {
	LocalPeerID types.PeerID

	// 可覆盖的方法
	SendFunc      func(ctx context.Context, to types.PeerID, data []byte) error
	PublishFunc   func(ctx context.Context, topic string, data []byte) error
	SubscribeFunc func(topic string) error
	PeersFunc     func() []types.PeerID

	mu     sync.Mutex
	events chan types.TransportEvent
	closed bool

	// 调用记录
	SendCalls      []SendCall
	PublishCalls   []PublishCall
	SubscribeCalls []string
}

// SendCall 记录 Send 调用
type SendCall struct {
	To   types.PeerID
	Data []byte
}

// PublishCall 记录 Publish 调用
type PublishCall struct {
	Topic string
	Data  []byte
}

// NewMockTransport 创建带有默认值的 MockTransport
func NewMockTransport(local types.PeerID) *MockTransport {
	return &MockTransport{
		LocalPeerID: local,
		events:      make(chan types.TransportEvent, 256),
	}
}

// LocalPeer 返回本地节点 ID
func (m *MockTransport) LocalPeer() types.PeerID {
	return m.LocalPeerID
}

// Send 单播数据
func (m *MockTransport) Send(ctx context.Context, to types.PeerID, data []byte) error {
	m.mu.Lock()
	m.SendCalls = append(m.SendCalls, SendCall{To: to, Data: append([]byte(nil), data...)})
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, data)
	}
	return nil
}

// Publish 广播数据
func (m *MockTransport) Publish(ctx context.Context, topic string, data []byte) error {
	m.mu.Lock()
	m.PublishCalls = append(m.PublishCalls, PublishCall{Topic: topic, Data: append([]byte(nil), data...)})
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	return nil
}

// Subscribe 订阅主题
func (m *MockTransport) Subscribe(topic string) error {
	m.mu.Lock()
	m.SubscribeCalls = append(m.SubscribeCalls, topic)
	m.mu.Unlock()

	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(topic)
	}
	return nil
}

// Inject 注入一个入站事件
func (m *MockTransport) Inject(ev types.TransportEvent) {
	m.events <- ev
}

// Next 返回下一个注入的事件
func (m *MockTransport) Next(ctx context.Context) (types.TransportEvent, error) {
	select {
	case ev, ok := <-m.events:
		if !ok {
			return types.TransportEvent{}, types.ErrTransportClosed
		}
		return ev, nil
	case <-ctx.Done():
		return types.TransportEvent{}, ctx.Err()
	}
}

// Peers 返回已连接对端
func (m *MockTransport) Peers() []types.PeerID {
	if m.PeersFunc != nil {
		return m.PeersFunc()
	}
	return nil
}

// Close 关闭事件通道
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	return nil
}

// Sent 返回 Send 调用记录副本
func (m *MockTransport) Sent() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SendCall(nil), m.SendCalls...)
}

// Published 返回 Publish 调用记录副本
func (m *MockTransport) Published() []PublishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishCall(nil), m.PublishCalls...)
}
