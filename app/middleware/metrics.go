package middleware

import (
	"strconv"
	"time"

	"github.com/auditguard/embedding-go/internal/metrics"
	"github.com/beego/beego/v2/server/web/context"
)

const startTimeKey = "metricsStartTime"

// MetricsBeforeFilter 记录请求开始时间
func MetricsBeforeFilter(ctx *context.Context) {
	ctx.Input.SetData(startTimeKey, time.Now())
}

// MetricsAfterFilter 上报请求计数与耗时
func MetricsAfterFilter(ctx *context.Context) {
	endpoint := ctx.Request.URL.Path
	method := ctx.Request.Method
	status := strconv.Itoa(ctx.ResponseWriter.Status)
	if status == "0" {
		status = "200"
	}

	metrics.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()

	if start, ok := ctx.Input.GetData(startTimeKey).(time.Time); ok {
		metrics.HTTPRequestDuration.WithLabelValues(endpoint).
			Observe(time.Since(start).Seconds())
	}
}
