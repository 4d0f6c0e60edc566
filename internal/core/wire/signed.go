package wire

import (
	"fmt"

	"github.com/multiformats/go-varint"
	"google.golang.org/protobuf/encoding/protowire"
)

// authorPrefix gossip 作者签名的域分隔前缀
const authorPrefix = "roundnet/gossip/v1"

// SignedMessage 字段号
const (
	fieldSignedMessage   protowire.Number = 1
	fieldSignedPublicKey protowire.Number = 2
	fieldSignedSignature protowire.Number = 3
)

// SignedMessage gossip 主题上传播的带作者签名的协议消息
//
//	message SignedMessage {
//	  bytes message    = 1; // 编码后的 ProtocolMessage
//	  bytes public_key = 2; // 作者序列化公钥
//	  bytes signature  = 3; // 作者对 AuthorChallenge 的签名
//	}
//
// 转发节点原样转发，作者身份不依赖传播路径。
type SignedMessage struct {
	Message   []byte
	PublicKey []byte
	Signature []byte
}

// Encode 编码
func (s *SignedMessage) Encode() []byte {
	b := make([]byte, 0, len(s.Message)+len(s.PublicKey)+len(s.Signature)+12)
	b = protowire.AppendTag(b, fieldSignedMessage, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Message)
	b = protowire.AppendTag(b, fieldSignedPublicKey, protowire.BytesType)
	b = protowire.AppendBytes(b, s.PublicKey)
	b = protowire.AppendTag(b, fieldSignedSignature, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Signature)
	return b
}

// DecodeSigned 解码，三个字段均为必需
func DecodeSigned(b []byte) (*SignedMessage, error) {
	s := &SignedMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldSignedMessage:
			s.Message = append([]byte(nil), v...)
		case fieldSignedPublicKey:
			s.PublicKey = append([]byte(nil), v...)
		case fieldSignedSignature:
			s.Signature = append([]byte(nil), v...)
		}
	}

	switch {
	case len(s.Message) == 0:
		return nil, fmt.Errorf("%w: message", ErrMissingField)
	case len(s.PublicKey) == 0:
		return nil, fmt.Errorf("%w: public_key", ErrMissingField)
	case len(s.Signature) == 0:
		return nil, fmt.Errorf("%w: signature", ErrMissingField)
	}
	return s, nil
}

// AuthorChallenge 作者签名的内容：前缀、主题（varint 长度前缀）与编码后的消息
func AuthorChallenge(topic string, message []byte) []byte {
	b := make([]byte, 0, len(authorPrefix)+varint.UvarintSize(uint64(len(topic)))+len(topic)+len(message))
	b = append(b, authorPrefix...)
	b = append(b, varint.ToUvarint(uint64(len(topic)))...)
	b = append(b, topic...)
	b = append(b, message...)
	return b
}
