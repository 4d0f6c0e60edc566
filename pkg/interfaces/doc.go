// Package interfaces 定义 roundnet 的公共接口
//
// 接口按依赖方向组织：
//
//   - transport.go  - 消费的网络传输（单播、主题广播、入站事件）
//   - identity.go   - 签名与验证原语
//   - network.go    - 主机向轮次适配器暴露的网络能力与参与方解析
//
// 实现位于 internal/core/* 与 internal/protocol/*。
package interfaces
