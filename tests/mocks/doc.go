// Package mocks 提供统一的测试 Mock 实现
//
// # 核心 Mock
//
//   - MockTransport: 模拟 interfaces.Transport，记录发送与广播调用
//   - MockSigner / MockVerifier: 模拟签名与验证原语
//   - MockEnvelopeSender: gomock 生成的握手信封发送器
//
// # 设计原则
//
// 1. 函数式注入: 手写 Mock 通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 关键 Mock 记录调用历史，便于验证测试行为
// 3. 需要严格调用次数断言时使用 gomock 生成的 Mock
//
// # 使用示例
//
//	tr := mocks.NewMockTransport(local)
//	tr.SendFunc = func(ctx context.Context, to types.PeerID, data []byte) error {
//	    return errors.New("connection refused")
//	}
//
//	ctrl := gomock.NewController(t)
//	sender := mocks.NewMockEnvelopeSender(ctrl)
//	sender.EXPECT().SendEnvelope(gomock.Any(), peer, gomock.Any()).Return(nil)
package mocks
