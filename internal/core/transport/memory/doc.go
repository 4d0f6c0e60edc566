// Package memory 实现进程内传输
//
// Hub 模拟一个网络：每个 Peer 实现 interfaces.Transport，两条通道相互独立：
//
//   - 单播通道：Send 只能发往已连接的对端
//   - 主题通道：Publish 投递给已连接且订阅了该主题的对端，发布者自身不会收到
//
// Connect/Disconnect 向双方各发出一个连接事件。SetDropFunc 可注入丢包规则，
// 用于测试握手超时与消息丢失。
//
// # 使用示例
//
//	hub := memory.NewHub()
//	a, _ := hub.NewPeer(idA)
//	b, _ := hub.NewPeer(idB)
//	_ = hub.Connect(idA, idB)
//
//	_ = a.Send(ctx, idB, []byte("hello"))
//	ev, _ := b.Next(ctx) // EventConnected
//	ev, _ = b.Next(ctx)  // EventFrame
package memory
