package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dep2p/go-roundnet/pkg/lib/crypto"
)

// LoadKeyFile 从文件加载身份，文件内容为十六进制原始私钥
func LoadKeyFile(keyType crypto.KeyType, path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}
	return FromHex(keyType, strings.TrimSpace(string(data)))
}

// SaveKeyFile 以 0600 权限原子写入身份私钥
func SaveKeyFile(id *Identity, path string) error {
	s, err := id.EncodeHex()
	if err != nil {
		return err
	}
	return atomicWriteFile(path, []byte(s+"\n"), 0o600)
}

// atomicWriteFile 临时文件 + rename，失败时目标文件保持不变
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("identity: create dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("identity: create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("identity: write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("identity: sync temp file: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("identity: chmod temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("identity: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("identity: rename: %w", err)
	}
	success = true
	return nil
}
