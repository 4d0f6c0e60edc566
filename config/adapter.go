package config

// AdapterConfig 轮次适配器配置
type AdapterConfig struct {
	// LoopbackBroadcast 广播消息是否同时投递到本地接收端
	LoopbackBroadcast bool `json:"loopback_broadcast"`
}

// DefaultAdapterConfig 返回默认适配器配置
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{}
}
