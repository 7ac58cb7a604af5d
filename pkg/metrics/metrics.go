// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集应用和系统指标.
//
// Example:
//
//	import "github.com/yeisme/snapvault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.ShareCreated.WithLabelValues("file").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/snapvault/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ShareCreated 创建的分享计数，按类型（file/text）.
	ShareCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapvault_shares_created_total",
			Help: "Total number of shares created, by kind",
		},
		[]string{"kind"},
	)

	// ShareRetrieved 取件结果计数，按结果（found/not_found/expired）.
	ShareRetrieved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapvault_shares_retrieved_total",
			Help: "Total number of share retrieval attempts, by outcome",
		},
		[]string{"outcome"},
	)

	// ShareDeleted 删除的分享计数，按触发方式（ttl/grace/sweep/manual）.
	ShareDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapvault_shares_deleted_total",
			Help: "Total number of shares deleted, by trigger",
		},
		[]string{"trigger"},
	)

	// OTPAllocationRetries 取件码分配的重试次数分布.
	OTPAllocationRetries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapvault_otp_allocation_retries",
			Help:    "Number of retries needed to allocate a unique OTP",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
)

// InitMetrics 初始化Metrics.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	// 注册标准收集器
	if config.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// 注册自定义指标
	registry.MustRegister(
		RequestCounter, RequestDuration,
		ShareCreated, ShareRetrieved, ShareDeleted, OTPAllocationRetries,
	)

	return nil
}

// StartMetricsServer 启动Metrics HTTP服务器.
func StartMetricsServer(config configs.MetricsConfig, debugEngine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	debugEngine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		debugEngine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
