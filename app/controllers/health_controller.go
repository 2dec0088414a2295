package controllers

import (
	"github.com/auditguard/embedding-go/internal/database"
	"github.com/auditguard/embedding-go/internal/metrics"
	"github.com/beego/beego/v2/server/web"
)

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	info := GetServiceContext().Embedding.ModelInfo()
	c.JSONSuccess(map[string]interface{}{
		"service": "Compliance Embedding Service",
		"version": "1.0.0",
		"model":   info.Model,
		"status":  "running",
	})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

func (c *HealthController) Health() {
	info := GetServiceContext().Embedding.ModelInfo()

	dbStatus := "healthy"
	if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unhealthy"
	}

	c.JSONSuccess(map[string]interface{}{
		"status":       "healthy",
		"model_loaded": info.Ready,
		"database":     dbStatus,
	})
}

// MetricsController 指标控制器
type MetricsController struct {
	web.Controller
}

// Metrics 返回Prometheus格式的指标
func (c *MetricsController) Metrics() {
	c.Ctx.Output.Header("Content-Type", "text/plain; charset=utf-8")
	metrics.Handler().ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
