package stream

import (
	"bufio"
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-roundnet/internal/core/wire"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// helloPrefix 链路认证挑战的域分隔前缀
const helloPrefix = "roundnet/stream/hello/v1"

// NonceSize hello 随机数长度
const NonceSize = 32

const (
	fieldHelloKey   protowire.Number = 1
	fieldHelloNonce protowire.Number = 2
)

// helloOffer 第一阶段：公钥与本端随机数
type helloOffer struct {
	publicKey []byte
	nonce     []byte
}

func (h *helloOffer) encode() []byte {
	b := make([]byte, 0, 8+len(h.publicKey)+len(h.nonce))
	b = protowire.AppendTag(b, fieldHelloKey, protowire.BytesType)
	b = protowire.AppendBytes(b, h.publicKey)
	b = protowire.AppendTag(b, fieldHelloNonce, protowire.BytesType)
	b = protowire.AppendBytes(b, h.nonce)
	return b
}

func decodeHelloOffer(b []byte) (*helloOffer, error) {
	h := &helloOffer{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadHello, protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.BytesType {
			return nil, fmt.Errorf("%w: field %d has wire type %d", ErrBadHello, num, typ)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadHello, protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldHelloKey:
			h.publicKey = append([]byte(nil), v...)
		case fieldHelloNonce:
			h.nonce = append([]byte(nil), v...)
		}
	}
	if len(h.publicKey) == 0 || len(h.nonce) != NonceSize {
		return nil, fmt.Errorf("%w: missing key or nonce", ErrBadHello)
	}
	return h, nil
}

// HelloChallenge 链路认证挑战
//
// signer 对 verifier 选取的 nonce 签名，双方 ID 一并纳入，签名不能在其他链路上重放。
func HelloChallenge(nonce []byte, signer, verifier types.PeerID) []byte {
	b := make([]byte, 0, len(helloPrefix)+len(nonce)+2*len(types.EmptyPeerID))
	b = append(b, helloPrefix...)
	b = append(b, nonce...)
	b = append(b, signer.Bytes()...)
	b = append(b, verifier.Bytes()...)
	return b
}

// hello 交换公钥与随机数，再交换对随机数的签名
//
// 对端 ID 由其公钥派生，签名验证通过才返回；返回的 Reader 可能已缓冲
// hello 之后的数据，后续读取必须复用。
func (t *Transport) hello(ctx context.Context, conn net.Conn) (types.PeerID, *bufio.Reader, error) {
	deadline := time.Now().Add(t.cfg.HelloTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	defer conn.SetDeadline(time.Time{}) //nolint:errcheck

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return types.EmptyPeerID, nil, fmt.Errorf("hello nonce: %w", err)
	}

	br := bufio.NewReader(conn)
	offer := helloOffer{publicKey: t.signer.PublicKey(), nonce: nonce}
	data, err := exchange(conn, br, offer.encode())
	if err != nil {
		return types.EmptyPeerID, nil, fmt.Errorf("%w: %v", ErrBadHello, err)
	}
	theirs, err := decodeHelloOffer(data)
	if err != nil {
		return types.EmptyPeerID, nil, err
	}

	remote := types.PeerIDFromPublicKey(theirs.publicKey)
	if remote == t.local {
		return types.EmptyPeerID, nil, ErrSelfConnect
	}

	sig, err := t.signer.Sign(HelloChallenge(theirs.nonce, t.local, remote))
	if err != nil {
		return types.EmptyPeerID, nil, fmt.Errorf("hello sign: %w", err)
	}
	peerSig, err := exchange(conn, br, sig)
	if err != nil {
		return types.EmptyPeerID, nil, fmt.Errorf("%w: %v", ErrBadHello, err)
	}

	ok, err := t.verifier.Verify(theirs.publicKey, HelloChallenge(nonce, remote, t.local), peerSig)
	if err != nil {
		return types.EmptyPeerID, nil, fmt.Errorf("%w: %v", ErrHelloAuth, err)
	}
	if !ok {
		return types.EmptyPeerID, nil, ErrHelloAuth
	}
	return remote, br, nil
}

// exchange 并发写出一帧并读取对端的一帧
func exchange(conn net.Conn, br *bufio.Reader, out []byte) ([]byte, error) {
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- wire.WriteFrame(conn, out)
	}()

	in, err := wire.ReadFrame(br)
	if err != nil {
		return nil, err
	}
	if err := <-writeErr; err != nil {
		return nil, err
	}
	return in, nil
}
