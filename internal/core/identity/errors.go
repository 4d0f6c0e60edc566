package identity

import "errors"

var (
	// ErrNilPrivateKey 私钥为空
	ErrNilPrivateKey = errors.New("identity: nil private key")

	// ErrKeyFileNotFound 密钥文件不存在
	ErrKeyFileNotFound = errors.New("identity: key file not found")

	// ErrInvalidKeyFile 密钥文件内容无效
	ErrInvalidKeyFile = errors.New("identity: invalid key file")
)
