package roundbased

import (
	"github.com/goccy/go-json"
)

// Codec 协议载荷编解码
//
// 同一会话中所有参与方必须使用相同的编码。
type Codec[M any] interface {
	Marshal(msg M) ([]byte, error)
	Unmarshal(data []byte) (M, error)
}

// JSONCodec 基于 JSON 的默认编解码
type JSONCodec[M any] struct{}

// Marshal 编码
func (JSONCodec[M]) Marshal(msg M) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal 解码
func (JSONCodec[M]) Unmarshal(data []byte) (M, error) {
	var msg M
	err := json.Unmarshal(data, &msg)
	return msg, err
}
