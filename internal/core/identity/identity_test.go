package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-roundnet/config"
	"github.com/dep2p/go-roundnet/pkg/lib/crypto"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// TestGenerate 测试生成身份并签名
func TestGenerate(t *testing.T) {
	for _, kt := range []crypto.KeyType{crypto.KeyTypeEd25519, crypto.KeyTypeSecp256k1} {
		t.Run(kt.String(), func(t *testing.T) {
			id, err := Generate(kt)
			require.NoError(t, err)

			assert.Equal(t, types.PeerIDFromPublicKey(id.PublicKey()), id.PeerID())
			assert.Equal(t, kt, id.KeyType())

			sig, err := id.Sign([]byte("challenge"))
			require.NoError(t, err)
			ok, err := crypto.StdVerifier{}.Verify(id.PublicKey(), []byte("challenge"), sig)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

// TestFromHex 测试十六进制私钥往返
func TestFromHex(t *testing.T) {
	id, err := Generate(crypto.KeyTypeEd25519)
	require.NoError(t, err)
	s, err := id.EncodeHex()
	require.NoError(t, err)

	back, err := FromHex(crypto.KeyTypeEd25519, s)
	require.NoError(t, err)
	assert.Equal(t, id.PeerID(), back.PeerID())

	_, err = FromHex(crypto.KeyTypeEd25519, "zz")
	assert.ErrorIs(t, err, ErrInvalidKeyFile)

	_, err = New(nil)
	assert.ErrorIs(t, err, ErrNilPrivateKey)
}

// TestKeyFile 测试密钥文件读写
func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "node.key")

	_, err := LoadKeyFile(crypto.KeyTypeEd25519, path)
	assert.ErrorIs(t, err, ErrKeyFileNotFound)

	id, err := Generate(crypto.KeyTypeEd25519)
	require.NoError(t, err)
	require.NoError(t, SaveKeyFile(id, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	back, err := LoadKeyFile(crypto.KeyTypeEd25519, path)
	require.NoError(t, err)
	assert.Equal(t, id.PeerID(), back.PeerID())
}

// TestProvideServices_AutoGenerate 测试首次启动生成并持久化密钥
func TestProvideServices_AutoGenerate(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Identity = cfg.Identity.WithKeyFile(filepath.Join(t.TempDir(), "node.key"))

	first, err := ProvideServices(ModuleInput{UnifiedCfg: cfg})
	require.NoError(t, err)

	second, err := ProvideServices(ModuleInput{UnifiedCfg: cfg})
	require.NoError(t, err)
	assert.Equal(t, first.Identity.PeerID(), second.Identity.PeerID())
	assert.Equal(t, first.Identity.PeerID(), second.Signer.PeerID())
}

// TestProvideServices_Preset 测试注入身份优先
func TestProvideServices_Preset(t *testing.T) {
	preset, err := Generate(crypto.KeyTypeSecp256k1)
	require.NoError(t, err)

	cfg := config.NewConfig()
	cfg.Identity.KeyType = "ed25519"
	out, err := ProvideServices(ModuleInput{UnifiedCfg: cfg, Preset: preset})
	require.NoError(t, err)
	assert.Same(t, preset, out.Identity)

	cfg.Identity.KeyType = "rsa"
	_, err = ProvideServices(ModuleInput{UnifiedCfg: cfg})
	assert.Error(t, err)
}
