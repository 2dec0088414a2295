package controllers

import (
	"github.com/auditguard/embedding-go/internal/knowledge"
	"github.com/auditguard/embedding-go/internal/services"
)

// ServiceContext 进程启动时构造一次的服务上下文
// 所有controller通过它访问共享服务，避免隐藏的全局可变状态散落各处；
// 嵌入服务的单模型实例语义由这里的唯一引用保证
type ServiceContext struct {
	Embedding *knowledge.EmbeddingService
	Pipeline  *services.PipelineService
	Store     *services.VectorService
	Admin     *services.AdminService
}

var serviceContext *ServiceContext

// InitServiceContext 注入服务上下文，由bootstrap在路由注册前调用
func InitServiceContext(ctx *ServiceContext) {
	serviceContext = ctx
}

// GetServiceContext 获取服务上下文
func GetServiceContext() *ServiceContext {
	return serviceContext
}
