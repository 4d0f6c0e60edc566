package roundnet

import "fmt"

// 版本信息，构建时通过 -ldflags 注入
var (
	Version   = "v0.1.0"
	GitCommit = ""
	BuildDate = ""
)

// VersionInfo 返回版本描述
func VersionInfo() string {
	s := "roundnet " + Version
	if GitCommit != "" {
		s += fmt.Sprintf(" (%s)", GitCommit)
	}
	if BuildDate != "" {
		s += " built " + BuildDate
	}
	return s
}
