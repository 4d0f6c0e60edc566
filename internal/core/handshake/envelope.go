package handshake

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Kind 信封类型
type Kind uint8

const (
	// KindRequest 握手请求
	KindRequest Kind = 1
	// KindResponse 握手响应
	KindResponse Kind = 2
	// KindError 错误响应
	KindError Kind = 3
	// KindProtocol 点对点协议消息（Payload 为编码后的 ProtocolMessage）
	KindProtocol Kind = 4
)

// String 返回信封类型名称
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindError:
		return "error"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Envelope 请求-响应通道上的信封
//
//	message Envelope {
//	  uint32 kind       = 1;
//	  string attempt_id = 2;
//	  bytes  public_key = 3;
//	  bytes  signature  = 4;
//	  uint32 code       = 5;
//	  string message    = 6;
//	  bytes  payload    = 7;
//	}
type Envelope struct {
	Kind      Kind
	AttemptID string
	PublicKey []byte
	Signature []byte
	Code      uint32
	Message   string
	Payload   []byte
}

const (
	fieldKind      protowire.Number = 1
	fieldAttemptID protowire.Number = 2
	fieldPublicKey protowire.Number = 3
	fieldSignature protowire.Number = 4
	fieldCode      protowire.Number = 5
	fieldMessage   protowire.Number = 6
	fieldPayload   protowire.Number = 7
)

// IsHandshake 是否为握手信封
func (e *Envelope) IsHandshake() bool {
	return e.Kind == KindRequest || e.Kind == KindResponse || e.Kind == KindError
}

// Encode 编码信封，空字段省略
func (e *Envelope) Encode() []byte {
	b := make([]byte, 0, 16+len(e.AttemptID)+len(e.PublicKey)+len(e.Signature)+len(e.Message)+len(e.Payload))
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Kind))
	if e.AttemptID != "" {
		b = protowire.AppendTag(b, fieldAttemptID, protowire.BytesType)
		b = protowire.AppendString(b, e.AttemptID)
	}
	if len(e.PublicKey) > 0 {
		b = protowire.AppendTag(b, fieldPublicKey, protowire.BytesType)
		b = protowire.AppendBytes(b, e.PublicKey)
	}
	if len(e.Signature) > 0 {
		b = protowire.AppendTag(b, fieldSignature, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Signature)
	}
	if e.Code != 0 {
		b = protowire.AppendTag(b, fieldCode, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Code))
	}
	if e.Message != "" {
		b = protowire.AppendTag(b, fieldMessage, protowire.BytesType)
		b = protowire.AppendString(b, e.Message)
	}
	if len(e.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Payload)
	}
	return b
}

// DecodeEnvelope 解码信封
func DecodeEnvelope(b []byte) (*Envelope, error) {
	e := &Envelope{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case (num == fieldKind || num == fieldCode) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			if num == fieldKind {
				if v > math.MaxUint8 {
					return nil, fmt.Errorf("%w: kind %d out of range", ErrMalformedEnvelope, v)
				}
				e.Kind = Kind(v)
			} else {
				if v > math.MaxUint32 {
					return nil, fmt.Errorf("%w: code %d out of range", ErrMalformedEnvelope, v)
				}
				e.Code = uint32(v)
			}
			b = b[n:]
		case num >= fieldAttemptID && num <= fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			switch num {
			case fieldAttemptID:
				e.AttemptID = string(v)
			case fieldPublicKey:
				e.PublicKey = append([]byte(nil), v...)
			case fieldSignature:
				e.Signature = append([]byte(nil), v...)
			case fieldMessage:
				e.Message = string(v)
			case fieldPayload:
				e.Payload = append([]byte(nil), v...)
			default:
				// code 字段出现在 bytes 类型下，视为未知字段
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if e.Kind < KindRequest || e.Kind > KindProtocol {
		return nil, fmt.Errorf("%w: kind %d", ErrMalformedEnvelope, e.Kind)
	}
	return e, nil
}

// ProtocolEnvelope 包装点对点协议消息
func ProtocolEnvelope(payload []byte) *Envelope {
	return &Envelope{Kind: KindProtocol, Payload: payload}
}

// ErrorEnvelope 构造错误响应
func ErrorEnvelope(attemptID string, code uint32, message string) *Envelope {
	return &Envelope{Kind: KindError, AttemptID: attemptID, Code: code, Message: message}
}
