// Package types 定义 roundnet 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他 roundnet 内部包。
// 所有类型都是纯值类型，用于在注册表、握手、主机和轮次适配器之间传递数据。
package types
