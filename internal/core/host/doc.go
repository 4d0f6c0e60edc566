// Package host 实现节点主机服务
//
// host 是 Core Layer 的聚合点，把传输、握手协调器、身份注册表与 gossip
// 去重组合起来，对上层提供 interfaces.Network：
//
//   - 入站：连接事件驱动握手；握手信封交给协调器；未验证对端的协议消息
//     回复 403 并丢弃；gossip 帧经去重后按协议分发到入站队列
//   - 出站：SendDirect 以 Protocol 信封单播，Broadcast 先记录本帧已见再发布
//
// # 入站处理链
//
//	Transport.Next()
//	  ├─> Connected     -> Coordinator.Initiate()
//	  ├─> Disconnected  -> Coordinator.Forget()
//	  └─> Frame
//	        ├─> direct: DecodeEnvelope
//	        │     ├─> 握手信封 -> Coordinator.HandleEnvelope()
//	        │     └─> Protocol -> 校验已验证 / 发送方 -> inbox
//	        └─> gossip: 校验传播源 -> Dedup.CheckAndMark -> [Regossip] -> inbox
//
// # 入站队列
//
// 每个协议一个有界队列，首次访问或首条消息到达时创建，满时丢弃最旧消息。
// 轮次适配器订阅之前到达的消息会保留在队列中。
//
// # 生命周期
//
// Start 启动入站循环、握手超时清理与去重 GC 三个后台任务；Close 停止所有任务、
// 关闭入站队列与传输。
package host
