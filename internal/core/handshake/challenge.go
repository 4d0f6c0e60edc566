package handshake

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-roundnet/pkg/types"
)

// challengeDomain 挑战域分隔前缀
const challengeDomain = "roundnet/handshake/v1"

// Challenge 构造签名挑战
//
// 格式：domain || len(session)||session || signer || verifier。
// 挑战同时绑定签名方与验证方，签名不能被转发给第三方或反射回签名方。
func Challenge(sessionID string, signer, verifier types.PeerID) []byte {
	b := make([]byte, 0, len(challengeDomain)+len(sessionID)+2*len(signer)+4)
	b = append(b, challengeDomain...)
	b = protowire.AppendString(b, sessionID)
	b = append(b, signer[:]...)
	b = append(b, verifier[:]...)
	return b
}
