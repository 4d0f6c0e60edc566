package crypto

import "errors"

// 密钥相关错误
var (
	// ErrBadKeyType 不支持的密钥类型
	ErrBadKeyType = errors.New("crypto: invalid or unsupported key type")

	// ErrNilPrivateKey 私钥为空
	ErrNilPrivateKey = errors.New("crypto: nil private key")

	// ErrNilPublicKey 公钥为空
	ErrNilPublicKey = errors.New("crypto: nil public key")

	// ErrInvalidKeySize 密钥大小无效
	ErrInvalidKeySize = errors.New("crypto: invalid key size")

	// ErrInvalidPublicKey 公钥无效
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")

	// ErrInvalidPrivateKey 私钥无效
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")
)

// 签名与序列化错误
var (
	// ErrNilSignature 签名为空
	ErrNilSignature = errors.New("crypto: nil signature")

	// ErrMarshalFailed 序列化失败
	ErrMarshalFailed = errors.New("crypto: marshal failed")

	// ErrUnmarshalFailed 反序列化失败
	ErrUnmarshalFailed = errors.New("crypto: unmarshal failed")
)
