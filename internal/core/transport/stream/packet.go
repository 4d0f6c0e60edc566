package stream

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-roundnet/pkg/types"
)

const (
	fieldChannel protowire.Number = 1
	fieldTopic   protowire.Number = 2
	fieldData    protowire.Number = 3
)

// packet 连接上的一个数据包
type packet struct {
	channel types.Channel
	topic   string
	data    []byte
}

func (p *packet) encode() []byte {
	b := make([]byte, 0, 8+len(p.topic)+len(p.data))
	b = protowire.AppendTag(b, fieldChannel, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.channel))
	if p.topic != "" {
		b = protowire.AppendTag(b, fieldTopic, protowire.BytesType)
		b = protowire.AppendString(b, p.topic)
	}
	b = protowire.AppendTag(b, fieldData, protowire.BytesType)
	b = protowire.AppendBytes(b, p.data)
	return b
}

func decodePacket(b []byte) (*packet, error) {
	p := &packet{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadPacket, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldChannel && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadPacket, protowire.ParseError(n))
			}
			p.channel = types.Channel(v)
			b = b[n:]
		case (num == fieldTopic || num == fieldData) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadPacket, protowire.ParseError(n))
			}
			if num == fieldTopic {
				p.topic = string(v)
			} else {
				p.data = append([]byte(nil), v...)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadPacket, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if p.channel != types.ChannelDirect && p.channel != types.ChannelGossip {
		return nil, fmt.Errorf("%w: channel %d", ErrBadPacket, p.channel)
	}
	return p, nil
}
