// Package stream 实现基于字节流连接的传输
//
// 每条 net.Conn 承载一个对端。建立时双方先交换 hello（序列化公钥 + 32 字节
// 随机数），再交换对对方随机数的签名；对端 ID 由其公钥派生，签名验证失败的
// 连接被关闭。之后每一帧是一个 varint 长度前缀的数据包：
//
//	message Packet {
//	  uint32 channel = 1; // 0 单播，1 主题
//	  string topic   = 2;
//	  bytes  data    = 3;
//	}
//
// 主题帧发往所有连接，接收方只上报本地订阅了的主题。连接只能经 Listen/Dial
// 或 AddConn 建立，不做发现与重连。
package stream
