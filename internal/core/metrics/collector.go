package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-roundnet/internal/core/dedup"
	"github.com/dep2p/go-roundnet/internal/core/handshake"
	"github.com/dep2p/go-roundnet/internal/core/host"
	"github.com/dep2p/go-roundnet/internal/core/registry"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
)

var logger = log.Logger("core/metrics")

// DefaultNamespace 默认指标前缀
const DefaultNamespace = "roundnet"

// Sources 统计来源，为 nil 的来源不导出
type Sources struct {
	Dedup       *dedup.Manager
	Coordinator *handshake.Coordinator
	Registry    *registry.Registry
	Host        *host.Host
}

func (s Sources) empty() bool {
	return s.Dedup == nil && s.Coordinator == nil && s.Registry == nil && s.Host == nil
}

var _ prometheus.Collector = (*Collector)(nil)

// Collector Prometheus 收集器
type Collector struct {
	src Sources

	dedupEvents     *prometheus.Desc
	dedupEntries    *prometheus.Desc
	handshakeEvents *prometheus.Desc
	parties         *prometheus.Desc
	verifiedPeers   *prometheus.Desc
	hostMessages    *prometheus.Desc
}

// NewCollector 创建收集器
func NewCollector(namespace string, src Sources) (*Collector, error) {
	if src.empty() {
		return nil, ErrNoSources
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Collector{
		src: src,
		dedupEvents: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "dedup", "events_total"),
			"Gossip dedup events by kind.",
			[]string{"event"}, nil),
		dedupEntries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "dedup", "cache_entries"),
			"Message hashes currently held by the dedup cache.",
			nil, nil),
		handshakeEvents: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "handshake", "events_total"),
			"Handshake events by kind.",
			[]string{"event"}, nil),
		parties: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "parties"),
			"Number of session parties, zero for an open session.",
			nil, nil),
		verifiedPeers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "verified_peers"),
			"Number of peers that completed the handshake.",
			nil, nil),
		hostMessages: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "host", "messages_total"),
			"Host ingress and egress counters by event.",
			[]string{"event"}, nil),
	}, nil
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	if c.src.Dedup != nil {
		ch <- c.dedupEvents
		ch <- c.dedupEntries
	}
	if c.src.Coordinator != nil {
		ch <- c.handshakeEvents
	}
	if c.src.Registry != nil {
		ch <- c.parties
		ch <- c.verifiedPeers
	}
	if c.src.Host != nil {
		ch <- c.hostMessages
	}
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if m := c.src.Dedup; m != nil {
		if st, ok := m.Stats(); ok {
			c.counters(ch, c.dedupEvents, map[string]uint64{
				"processed":    st.Processed,
				"duplicate":    st.Duplicates,
				"regossiped":   st.Regossiped,
				"send_failure": st.SendFailures,
			})
		}
		ch <- prometheus.MustNewConstMetric(c.dedupEntries, prometheus.GaugeValue, float64(m.Cache().Len()))
	}

	if co := c.src.Coordinator; co != nil {
		st := co.Stats()
		c.counters(ch, c.handshakeEvents, map[string]uint64{
			"request_in":          st.RequestsIn,
			"response_in":         st.ResponsesIn,
			"error_in":            st.ErrorsIn,
			"verified":            st.Verified,
			"failed":              st.Failed,
			"timeout":             st.Timeouts,
			"deferred":            st.Deferred,
			"stale":               st.Stale,
			"rate_limited":        st.RateLimited,
			"rejected_unverified": st.RejectedUnverified,
		})
	}

	if r := c.src.Registry; r != nil {
		ch <- prometheus.MustNewConstMetric(c.parties, prometheus.GaugeValue, float64(r.PartyCount()))
		ch <- prometheus.MustNewConstMetric(c.verifiedPeers, prometheus.GaugeValue, float64(r.VerifiedCount()))
	}

	if h := c.src.Host; h != nil {
		st := h.Stats()
		c.counters(ch, c.hostMessages, map[string]uint64{
			"ingress_frame":       st.IngressFrames,
			"direct_delivered":    st.DirectDelivered,
			"gossip_delivered":    st.GossipDelivered,
			"direct_sent":         st.DirectSent,
			"gossip_sent":         st.GossipSent,
			"rejected_unverified": st.RejectedUnverified,
			"duplicate":           st.Duplicates,
			"identity_mismatch":   st.IdentityMismatch,
			"forged_author":       st.ForgedAuthor,
			"misaddressed":        st.Misaddressed,
			"decode_error":        st.DecodeErrors,
			"inbox_dropped":       st.InboxDropped,
			"unrouted":            st.Unrouted,
		})
	}
}

func (c *Collector) counters(ch chan<- prometheus.Metric, desc *prometheus.Desc, values map[string]uint64) {
	for event, v := range values {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), event)
	}
}

// Register 注册到 Registerer，重复注册视为成功
func (c *Collector) Register(reg prometheus.Registerer) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	logger.Debug("指标收集器已注册")
	return nil
}

// Handler 返回导出 Gatherer 指标的 HTTP 处理器
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
