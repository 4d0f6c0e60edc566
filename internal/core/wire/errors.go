package wire

import "errors"

var (
	// ErrMalformed 报文格式错误
	ErrMalformed = errors.New("wire: malformed message")

	// ErrMissingField 缺少必需字段
	ErrMissingField = errors.New("wire: missing required field")

	// ErrFrameTooLarge 帧长度超出上限
	ErrFrameTooLarge = errors.New("wire: frame too large")
)
