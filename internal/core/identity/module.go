package identity

import (
	"errors"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-roundnet/config"
	"github.com/dep2p/go-roundnet/pkg/lib/crypto"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
)

var logger = log.Logger("core/identity")

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`

	// Preset 直接注入的身份，优先于配置
	Preset *Identity `name:"preset_identity" optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Identity *Identity
	Signer   pkgif.Signer
	Verifier pkgif.Verifier
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 提供本地身份
//
// 优先级：Preset > PrivateKeyHex > KeyFile > 临时生成
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	id, err := resolve(input)
	if err != nil {
		return ModuleOutput{}, err
	}
	logger.Info("本地身份就绪", "peer", id.PeerID().ShortString(), "keyType", id.KeyType().String())
	return ModuleOutput{Identity: id, Signer: id, Verifier: crypto.StdVerifier{}}, nil
}

func resolve(input ModuleInput) (*Identity, error) {
	if input.Preset != nil {
		return input.Preset, nil
	}

	cfg := config.DefaultIdentityConfig()
	if input.UnifiedCfg != nil {
		cfg = input.UnifiedCfg.Identity
	}
	keyType, err := crypto.ParseKeyType(cfg.KeyType)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.PrivateKeyHex != "":
		return FromHex(keyType, cfg.PrivateKeyHex)

	case cfg.KeyFile != "":
		id, err := LoadKeyFile(keyType, cfg.KeyFile)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrKeyFileNotFound) || !cfg.AutoGenerate {
			return nil, fmt.Errorf("identity: load key file: %w", err)
		}
		id, err = Generate(keyType)
		if err != nil {
			return nil, err
		}
		if err := SaveKeyFile(id, cfg.KeyFile); err != nil {
			logger.Warn("保存密钥文件失败", "path", cfg.KeyFile, "err", err)
		}
		return id, nil

	default:
		return Generate(keyType)
	}
}
