// Package roundbased 实现轮次协议的传输适配器
//
// 同步轮次协议（门限签名、DKG 等）以 Outgoing/Incoming 收发消息，本包把它们
// 映射到节点网络上：
//
//   - Sender: 为每个协议标签分配单调递增的消息编号，序列化载荷，按目标选择端口
//   - Receiver: 优先读取本地回环队列，再读取网络入站队列，把发送方解析为参与方索引
//
// # 目标与端口
//
//	OneParty(self)   -> LoopbackPort  本地回环，不经网络
//	OneParty(other)  -> UnicastPort   解析为节点后单播
//	AllParties       -> GossipPort    主题广播（可选同时回环）
//
// # 错误
//
// 发送路径的序列化失败、索引无法解析、传输失败以 RouteError 返回，不做重试。
// 接收路径的反序列化失败以 ReceiveError 返回；发送方无法解析的消息静默丢弃并计数。
//
// # 使用示例
//
//	adapter, err := roundbased.New[Msg](host, registry, "dkg", selfIndex, nil)
//	rx, tx := adapter.Split()
//
//	err = tx.Send(ctx, roundbased.Outgoing[Msg]{Recipient: types.AllParties(), Msg: m})
//	in, err := rx.Recv(ctx)
package roundbased
