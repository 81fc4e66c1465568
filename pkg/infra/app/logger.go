package app

import (
	"fmt"

	"github.com/kart-io/logger"

	logopts "github.com/kart-io/legalens/pkg/options/logger"
)

// InitLogger 初始化全局日志，每条日志都带有服务名和版本。
func InitLogger(opts *logopts.Options, serviceName string) error {
	if opts == nil {
		opts = logopts.NewOptions()
	}
	opts.AddInitialField("service.name", serviceName)
	opts.AddInitialField("service.version", GetVersion())
	if err := opts.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// FlushLogger 刷新缓冲的日志，退出前调用。
func FlushLogger() {
	_ = logger.Flush()
}
