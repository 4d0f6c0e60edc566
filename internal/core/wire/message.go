// Package wire 实现协议消息的线格式
//
// ProtocolMessage 使用 protobuf 线格式（按字段号编码，未知字段跳过）：
//
//	message ProtocolMessage {
//	  string  protocol_tag = 1;
//	  Routing routing      = 2;
//	  bytes   payload      = 3;
//	}
//	message Routing {
//	  uint64 message_id = 1;
//	  uint32 round_id   = 2;
//	  bytes  sender     = 3;
//	  bytes  recipient  = 4; // 缺省表示广播
//	}
//
// 面向流的传输使用 varint 长度前缀分帧，见 WriteFrame / ReadFrame。
package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-roundnet/pkg/types"
)

// ProtocolMessage 字段号
const (
	fieldTag     protowire.Number = 1
	fieldRouting protowire.Number = 2
	fieldPayload protowire.Number = 3
)

// Routing 字段号
const (
	fieldMessageID protowire.Number = 1
	fieldRoundID   protowire.Number = 2
	fieldSender    protowire.Number = 3
	fieldRecipient protowire.Number = 4
)

// EncodeMessage 编码协议消息
func EncodeMessage(msg *types.ProtocolMessage) []byte {
	routing := encodeRouting(&msg.Routing)

	b := make([]byte, 0, len(msg.ProtocolTag)+len(routing)+len(msg.Payload)+16)
	b = protowire.AppendTag(b, fieldTag, protowire.BytesType)
	b = protowire.AppendString(b, msg.ProtocolTag)
	b = protowire.AppendTag(b, fieldRouting, protowire.BytesType)
	b = protowire.AppendBytes(b, routing)
	if len(msg.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, msg.Payload)
	}
	return b
}

func encodeRouting(r *types.MessageRouting) []byte {
	b := make([]byte, 0, 80)
	b = protowire.AppendTag(b, fieldMessageID, protowire.VarintType)
	b = protowire.AppendVarint(b, r.MessageID)
	b = protowire.AppendTag(b, fieldRoundID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.RoundID))
	b = protowire.AppendTag(b, fieldSender, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Sender.Bytes())
	if r.Recipient != nil {
		b = protowire.AppendTag(b, fieldRecipient, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Recipient.Bytes())
	}
	return b
}

// DecodeMessage 解码协议消息
//
// protocol_tag、routing 与 routing.sender 为必需字段。
func DecodeMessage(b []byte) (*types.ProtocolMessage, error) {
	msg := &types.ProtocolMessage{}
	var hasTag, hasRouting bool

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldTag && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: protocol_tag: %v", ErrMalformed, protowire.ParseError(n))
			}
			msg.ProtocolTag = v
			hasTag = true
			b = b[n:]
		case num == fieldRouting && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: routing: %v", ErrMalformed, protowire.ParseError(n))
			}
			if err := decodeRouting(v, &msg.Routing); err != nil {
				return nil, err
			}
			hasRouting = true
			b = b[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: payload: %v", ErrMalformed, protowire.ParseError(n))
			}
			msg.Payload = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if !hasTag || msg.ProtocolTag == "" {
		return nil, fmt.Errorf("%w: protocol_tag", ErrMissingField)
	}
	if !hasRouting {
		return nil, fmt.Errorf("%w: routing", ErrMissingField)
	}
	return msg, nil
}

func decodeRouting(b []byte, r *types.MessageRouting) error {
	var hasSender bool
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: routing: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldMessageID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: message_id: %v", ErrMalformed, protowire.ParseError(n))
			}
			r.MessageID = v
			b = b[n:]
		case num == fieldRoundID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: round_id: %v", ErrMalformed, protowire.ParseError(n))
			}
			if v > math.MaxUint16 {
				return fmt.Errorf("%w: round_id out of range", ErrMalformed)
			}
			r.RoundID = uint16(v)
			b = b[n:]
		case (num == fieldSender || num == fieldRecipient) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: peer: %v", ErrMalformed, protowire.ParseError(n))
			}
			id, err := types.PeerIDFromBytes(v)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			if num == fieldSender {
				r.Sender = id
				hasSender = true
			} else {
				r.Recipient = &id
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: routing: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if !hasSender {
		return fmt.Errorf("%w: routing.sender", ErrMissingField)
	}
	return nil
}
