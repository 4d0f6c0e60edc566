package metrics

import "errors"

// ErrNoSources 没有任何统计来源
var ErrNoSources = errors.New("metrics: no sources")
