package handshake

import (
	"bytes"

	"github.com/dep2p/go-roundnet/pkg/types"
)

// TieBreaker 双方同时发起握手时的裁决规则
//
// 返回 true 表示本端让步：取消自己的出站握手，转而处理对端请求。
// 规则必须对称：对任意不同的 a、b，f(a, b) 与 f(b, a) 恰有一个为 true。
type TieBreaker func(local, remote types.PeerIdentity) bool

// LowerKeyYields 默认裁决：序列化公钥字典序较小的一方让步
//
// 公钥相同时按 PeerID 字节序比较。
func LowerKeyYields(local, remote types.PeerIdentity) bool {
	if c := bytes.Compare(local.PublicKey, remote.PublicKey); c != 0 {
		return c < 0
	}
	return local.ID.Compare(remote.ID) < 0
}
