package main

import (
	"log"
	"strconv"

	"github.com/auditguard/embedding-go/app/bootstrap"
	"github.com/auditguard/embedding-go/app/router"
	"github.com/auditguard/embedding-go/internal/config"
	"github.com/auditguard/embedding-go/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	router.Init()

	web.BConfig.AppName = "Embedding Service"
	web.BConfig.CopyRequestBody = true
	if port, err := strconv.Atoi(config.GetConfig().Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	} else {
		web.BConfig.Listen.HTTPPort = 8080
	}

	logger.Info("🚀 Starting Embedding Service", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
