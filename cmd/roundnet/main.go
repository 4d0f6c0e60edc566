// Package main 提供 roundnet 命令行入口
//
// 启动一个使用 TCP 传输的节点，连接给定对端并等待会话参与方完成握手。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dep2p/go-roundnet"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
)

var logger = log.Logger("roundnet/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖
//   JSON 配置文件：会话参与方、超时、去重容量等持久配置
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile   = flag.String("config", "", "配置文件路径")
	listenAddr   = flag.String("listen", "127.0.0.1:0", "TCP 监听地址")
	peers        = flag.String("peers", "", "启动后连接的对端地址（逗号分隔）")
	identityFile = flag.String("identity", "", "身份密钥文件路径")
	sessionID    = flag.String("session", "", "会话标识")
	logLevel     = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")
	metricsAddr  = flag.String("metrics", "", "Prometheus 指标监听地址")
	waitTimeout  = flag.Duration("wait", 30*time.Second, "等待全部参与方握手的超时")

	genKey      = flag.Bool("gen-key", false, "生成新密钥并输出")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(roundnet.VersionInfo())
		return nil
	}
	if *genKey {
		return printNewKey()
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}
	applyEnvOverrides(cfg)

	// 命令行参数优先级最高
	if *identityFile != "" {
		cfg.Identity = cfg.Identity.WithKeyFile(*identityFile)
	}
	if *sessionID != "" {
		cfg.Handshake = cfg.Handshake.WithSessionID(*sessionID)
	}
	if *logLevel != "" {
		cfg.Log = cfg.Log.WithLevel(*logLevel)
		cfg.Log.Setup = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	node, err := roundnet.New(ctx,
		roundnet.WithConfig(cfg),
		roundnet.WithStreamTransport(*listenAddr),
	)
	if err != nil {
		return fmt.Errorf("创建节点失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	if err := node.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	logger.Info("节点已启动", "version", roundnet.Version, "peer", node.LocalPeer().String())
	printNodeInfo(node)

	if *metricsAddr != "" {
		if err := serveMetrics(ctx, node, *metricsAddr); err != nil {
			return err
		}
	}

	for _, addr := range splitList(*peers) {
		peer, err := node.Connect(ctx, addr)
		if err != nil {
			logger.Warn("连接对端失败", "addr", addr, "err", err)
			continue
		}
		fmt.Printf("已连接 %s (%s)\n", addr, peer.ShortString())
	}

	if node.PartyCount() > 0 {
		wctx, wcancel := context.WithTimeout(ctx, *waitTimeout)
		err := node.WaitParties(wctx)
		wcancel()
		switch {
		case err == nil:
			fmt.Printf("全部 %d 个参与方已完成握手\n", node.PartyCount())
		case errors.Is(err, roundnet.ErrNotParty):
			return err
		default:
			logger.Warn("等待参与方超时", "verified", len(node.VerifiedPeers()), "err", err)
		}
	}

	fmt.Println("按 Ctrl+C 退出")
	<-ctx.Done()
	fmt.Println("\n正在关闭节点...")
	return nil
}

// printNewKey 生成密钥并输出私钥与公钥
func printNewKey() error {
	id, err := roundnet.NewIdentity("ed25519")
	if err != nil {
		return err
	}
	priv, err := id.EncodeHex()
	if err != nil {
		return err
	}
	fmt.Printf("private_key_hex: %s\n", priv)
	fmt.Printf("public_key_hex:  %x\n", id.PublicKey())
	fmt.Printf("peer_id:         %s\n", id.PeerID())
	return nil
}

// serveMetrics 在后台导出 Prometheus 指标
func serveMetrics(ctx context.Context, node *roundnet.Node, addr string) error {
	h := node.MetricsHandler()
	if h == nil {
		return errors.New("指标未启用")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标服务退出", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	logger.Info("指标服务已启动", "addr", addr)
	return nil
}

// printNodeInfo 打印节点信息
func printNodeInfo(node *roundnet.Node) {
	fmt.Println()
	fmt.Printf("节点 ID:  %s\n", node.LocalPeer())
	fmt.Printf("公钥:     %x\n", node.PublicKey())
	fmt.Printf("会话:     %s\n", node.Config().Handshake.SessionID)
	if idx, ok := node.PartyIndex(); ok {
		fmt.Printf("参与方:   %d / %d\n", idx, node.PartyCount())
	} else if node.PartyCount() == 0 {
		fmt.Println("参与方:   开放会话")
	} else {
		fmt.Println("参与方:   本节点不在参与方列表中")
	}
	for _, a := range node.ListenAddrs() {
		fmt.Printf("监听地址: %s\n", a)
	}
	fmt.Println()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
