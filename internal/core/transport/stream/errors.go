package stream

import "errors"

var (
	// ErrNotConnected 未与目标节点连接
	ErrNotConnected = errors.New("stream: not connected")

	// ErrAlreadyConnected 已存在与该节点的连接
	ErrAlreadyConnected = errors.New("stream: already connected")

	// ErrSelfConnect 对端节点 ID 与本地相同
	ErrSelfConnect = errors.New("stream: cannot connect to self")

	// ErrBadHello hello 帧格式错误
	ErrBadHello = errors.New("stream: bad hello")

	// ErrHelloAuth 对端未能证明持有其公钥对应的私钥
	ErrHelloAuth = errors.New("stream: hello authentication failed")

	// ErrBadPacket 数据包格式错误
	ErrBadPacket = errors.New("stream: bad packet")
)
