package core

import "time"

// 应用生命周期事件通过事件总线的类型通道发布，
// 任何服务都可以订阅而无需和 Application 直接耦合。

// ApplicationStarted 应用启动完成后发布
type ApplicationStarted struct {
	Environment string
	At          time.Time
}

// ApplicationStopping 开始优雅关闭前发布，订阅者可以在这里做收尾工作
type ApplicationStopping struct {
	At time.Time
}

// ApplicationStopped 托管服务与清理函数全部结束后发布
type ApplicationStopped struct {
	At     time.Time
	Uptime time.Duration
}

// ConfigurationReloaded 配置热重载成功后发布
type ConfigurationReloaded struct {
	Source string
	At     time.Time
}
