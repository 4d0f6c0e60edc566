package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-roundnet/internal/core/wire"
	"github.com/dep2p/go-roundnet/internal/util/queue"
	"github.com/dep2p/go-roundnet/pkg/lib/crypto"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

var logger = log.Logger("core/transport/stream")

var _ pkgif.Transport = (*Transport)(nil)

// Config 流传输配置
type Config struct {
	// HelloTimeout hello 交换超时
	HelloTimeout time.Duration

	// EventQueueSize 入站事件队列容量，<= 0 表示不限制
	EventQueueSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		HelloTimeout:   10 * time.Second,
		EventQueueSize: 8192,
	}
}

// link 单个对端连接
type link struct {
	peer types.PeerID
	conn net.Conn
	br   *bufio.Reader
	wmu  sync.Mutex
}

func (l *link) write(ctx context.Context, data []byte) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = l.conn.SetWriteDeadline(deadline)
		defer l.conn.SetWriteDeadline(time.Time{}) //nolint:errcheck
	}
	return wire.WriteFrame(l.conn, data)
}

// Option 传输选项
type Option func(*Transport)

// WithVerifier 设置 hello 签名验证器，默认 crypto.StdVerifier
func WithVerifier(v pkgif.Verifier) Option {
	return func(t *Transport) {
		t.verifier = v
	}
}

// Transport 基于 net.Conn 的传输
type Transport struct {
	cfg      Config
	local    types.PeerID
	signer   pkgif.Signer
	verifier pkgif.Verifier
	events   *queue.Queue[types.TransportEvent]

	mu        sync.RWMutex
	links     map[types.PeerID]*link
	topics    map[string]struct{}
	listeners []net.Listener
	closed    bool

	wg sync.WaitGroup
}

// New 创建流传输
//
// signer 是本地身份：每条链路建立时用它证明持有本地 ID 对应的私钥。
func New(signer pkgif.Signer, cfg Config, opts ...Option) *Transport {
	t := &Transport{
		cfg:      cfg,
		local:    signer.PeerID(),
		signer:   signer,
		verifier: crypto.StdVerifier{},
		events:   queue.New[types.TransportEvent](cfg.EventQueueSize),
		links:    make(map[types.PeerID]*link),
		topics:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LocalPeer 返回本地节点 ID
func (t *Transport) LocalPeer() types.PeerID {
	return t.local
}

// ============================================================================
//                              连接建立
// ============================================================================

// Listen 在 TCP 地址上接受连接，返回实际监听地址
func (t *Transport) Listen(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = ln.Close()
		return nil, types.ErrTransportClosed
	}
	t.listeners = append(t.listeners, ln)
	t.wg.Add(1)
	t.mu.Unlock()

	go t.acceptLoop(ln)
	logger.Info("开始监听", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

// ListenAddrs 返回当前监听地址
func (t *Transport) ListenAddrs() []net.Addr {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]net.Addr, 0, len(t.listeners))
	for _, ln := range t.listeners {
		out = append(out, ln.Addr())
	}
	return out
}

func (t *Transport) acceptLoop(ln net.Listener) {
	defer t.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logger.Warn("接受连接失败", "err", err)
			}
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), t.cfg.HelloTimeout)
			defer cancel()
			if _, err := t.AddConn(ctx, conn); err != nil {
				logger.Debug("入站连接建立失败", "remote", conn.RemoteAddr().String(), "err", err)
			}
		}()
	}
}

// Dial 拨号 TCP 地址，返回对端节点 ID
func (t *Transport) Dial(ctx context.Context, addr string) (types.PeerID, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return types.EmptyPeerID, err
	}
	return t.AddConn(ctx, conn)
}

// AddConn 在已建立的连接上完成 hello 认证并登记对端
//
// 失败时关闭连接。
func (t *Transport) AddConn(ctx context.Context, conn net.Conn) (types.PeerID, error) {
	remote, br, err := t.hello(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return types.EmptyPeerID, err
	}

	l := &link{peer: remote, conn: conn, br: br}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return types.EmptyPeerID, types.ErrTransportClosed
	}
	if _, ok := t.links[remote]; ok {
		t.mu.Unlock()
		_ = conn.Close()
		return remote, ErrAlreadyConnected
	}
	t.links[remote] = l
	t.wg.Add(1)
	// 在锁内入队，保证同一对端的连接与断开事件按链路顺序出现
	t.push(types.TransportEvent{Kind: types.EventConnected, From: remote})
	t.mu.Unlock()

	go t.readLoop(l)

	logger.Debug("连接已建立", "peer", remote.ShortString(), "remote", conn.RemoteAddr().String())
	return remote, nil
}

func (t *Transport) readLoop(l *link) {
	defer t.wg.Done()
	defer t.dropLink(l)

	for {
		data, err := wire.ReadFrame(l.br)
		if err != nil {
			logger.Debug("连接读取结束", "peer", l.peer.ShortString(), "err", err)
			return
		}
		p, err := decodePacket(data)
		if err != nil {
			logger.Warn("丢弃格式错误的数据包", "peer", l.peer.ShortString(), "err", err)
			continue
		}
		if p.channel == types.ChannelGossip && !t.subscribed(p.topic) {
			continue
		}
		t.push(types.TransportEvent{
			Kind:    types.EventFrame,
			From:    l.peer,
			Channel: p.channel,
			Topic:   p.topic,
			Data:    p.data,
		})
	}
}

func (t *Transport) dropLink(l *link) {
	_ = l.conn.Close()

	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.links[l.peer]
	if !ok || cur != l {
		return
	}
	delete(t.links, l.peer)
	if !t.closed {
		t.push(types.TransportEvent{Kind: types.EventDisconnected, From: l.peer})
	}
}

// ============================================================================
//                              收发
// ============================================================================

// Send 通过单播通道发送
func (t *Transport) Send(ctx context.Context, to types.PeerID, data []byte) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return types.ErrTransportClosed
	}
	l, ok := t.links[to]
	t.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	p := packet{channel: types.ChannelDirect, data: data}
	return l.write(ctx, p.encode())
}

// Publish 向所有连接发送主题帧
func (t *Transport) Publish(ctx context.Context, topic string, data []byte) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return types.ErrTransportClosed
	}
	links := make([]*link, 0, len(t.links))
	for _, l := range t.links {
		links = append(links, l)
	}
	t.mu.RUnlock()

	p := packet{channel: types.ChannelGossip, topic: topic, data: data}
	frame := p.encode()

	var errs error
	for _, l := range links {
		if err := l.write(ctx, frame); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish to %s: %w", l.peer.ShortString(), err))
		}
	}
	return errs
}

// Subscribe 订阅主题
func (t *Transport) Subscribe(topic string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return types.ErrTransportClosed
	}
	t.topics[topic] = struct{}{}
	return nil
}

func (t *Transport) subscribed(topic string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.topics[topic]
	return ok
}

// Next 阻塞等待下一个入站事件
func (t *Transport) Next(ctx context.Context) (types.TransportEvent, error) {
	ev, err := t.events.Pop(ctx)
	if errors.Is(err, queue.ErrClosed) {
		return types.TransportEvent{}, types.ErrTransportClosed
	}
	return ev, err
}

// Peers 返回已连接的对端（按字节序）
func (t *Transport) Peers() []types.PeerID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.PeerID, 0, len(t.links))
	for id := range t.links {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Close 关闭所有监听与连接
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	listeners := t.listeners
	t.listeners = nil
	links := make([]*link, 0, len(t.links))
	for _, l := range t.links {
		links = append(links, l)
	}
	t.mu.Unlock()

	var errs error
	for _, ln := range listeners {
		errs = multierr.Append(errs, ln.Close())
	}
	for _, l := range links {
		if err := l.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = multierr.Append(errs, err)
		}
	}
	t.wg.Wait()
	t.events.Close()
	return errs
}

func (t *Transport) push(ev types.TransportEvent) {
	if dropped, err := t.events.Push(ev); err == nil && dropped > 0 {
		logger.Warn("事件队列已满，丢弃最旧事件", "dropped", dropped)
	}
}
