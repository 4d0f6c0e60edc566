// Package roundnet 是面向门限密码协议的安全 P2P 消息层
//
// 一个 Node 聚合以下组件：
//
//   - 身份：长期签名密钥，PeerID 由公钥派生
//   - 注册表：会话参与方与已验证节点
//   - 握手协调器：签名挑战互认，同时发起时按公钥大小让步
//   - 主机：入站路由、gossip 去重与未验证拒绝
//   - 轮次适配器：把 Outgoing/Incoming 映射到单播、广播与本地回环
//
// 传输由调用方选择：进程内 memory hub 适合测试与单进程模拟，stream 传输基于
// TCP 长连接。
//
// # 快速开始
//
//	hub := roundnet.NewMemoryHub()
//	node, err := roundnet.New(ctx,
//	    roundnet.WithSessionID("dkg-epoch-7"),
//	    roundnet.WithParties(pubA, pubB, pubC),
//	    roundnet.WithIdentity(idA),
//	    roundnet.WithMemoryTransport(hub),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := node.WaitParties(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	adapter, err := roundnet.NewAdapter[Msg](node, "dkg", nil)
//	rx, tx := adapter.Split()
package roundnet
