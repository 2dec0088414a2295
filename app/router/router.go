package router

import (
	"github.com/auditguard/embedding-go/app/controllers"
	"github.com/auditguard/embedding-go/app/middleware"
	"github.com/beego/beego/v2/server/web"
)

// Init registers all routes. Must be called after the service context is ready.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")

	// /api/v1 下的接口走密钥校验与限流
	web.InsertFilter("/api/v1/*", web.BeforeRouter, middleware.APIKeyFilter)
	web.InsertFilter("/api/v1/*", web.BeforeRouter, middleware.RateLimitFilter)
	web.InsertFilter("/*", web.BeforeRouter, middleware.MetricsBeforeFilter)
	web.InsertFilter("/*", web.AfterExec, middleware.MetricsAfterFilter, web.WithReturnOnOutput(false))

	documentController := &controllers.DocumentController{}
	web.Router("/api/v1/documents/process", documentController, "post:Process")
	web.Router("/api/v1/documents/search", documentController, "post:Search")
	// 注意：具体路由必须在参数路由之前
	web.Router("/api/v1/documents/:id/status", documentController, "get:Status")
	web.Router("/api/v1/documents/:id/vector-status", documentController, "get:VectorStatus")
	web.Router("/api/v1/documents/:id/chunks", documentController, "get:Chunks")
	web.Router("/api/v1/documents/:id/embedding-stats", documentController, "get:EmbeddingStats")
	web.Router("/api/v1/documents/:id", documentController, "delete:Delete")

	embeddingController := &controllers.EmbeddingController{}
	web.Router("/api/v1/embed", embeddingController, "post:Embed")
	web.Router("/api/v1/stats", embeddingController, "get:Stats")
	web.Router("/api/v1/cache/clear", embeddingController, "post:ClearCache")

	adminController := &controllers.AdminController{}
	web.Router("/api/v1/admin/cleanup", adminController, "post:Cleanup")
	web.Router("/api/v1/admin/vector-stats", adminController, "get:VectorStats")
}
