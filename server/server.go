package server

import "context"

// Server 接口定义了一个通用的服务器行为契约，由 app.App 统一管理生命周期。
type Server interface {
	// Start 阻塞运行服务器，直到 ctx 被取消或发生错误。
	Start(ctx context.Context) error
	// Stop 优雅地停止服务器，等待正在处理的请求完成。
	Stop(ctx context.Context) error
}
