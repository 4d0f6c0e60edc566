// Package metrics 把各组件的统计快照导出为 Prometheus 指标
//
// Collector 不持有计数器，每次抓取时读取 dedup、handshake、registry 与 host
// 的 Stats 快照并生成常量指标，组件本身不依赖 Prometheus。
//
// # 指标
//
//	<ns>_dedup_events_total{event}        去重事件（processed/duplicate/regossiped/send_failure）
//	<ns>_dedup_cache_entries              去重缓存条目数
//	<ns>_handshake_events_total{event}    握手事件
//	<ns>_registry_parties                 会话参与方数
//	<ns>_registry_verified_peers          已验证节点数
//	<ns>_host_messages_total{event}       主机收发与丢弃计数
//
// # Fx 模块
//
//	app := fx.New(
//	    dedup.Module(),
//	    metrics.Module(),
//	    fx.Invoke(func(c *metrics.Collector) { ... }),
//	)
//
// 未启用指标时 Collector 为 nil。
package metrics
