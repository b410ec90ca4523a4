package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

// HealthCheck pings one dependency. A nil Ping marks the dependency as not configured.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type healthUsecase struct {
	checks  []HealthCheck
	timeout time.Duration
}

func NewHealthUsecase(checks ...HealthCheck) HealthUsecase {
	return &healthUsecase{checks: checks, timeout: 2 * time.Second}
}

func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	result := map[string]string{"status": HealthHealthy}
	for _, c := range u.checks {
		if c.Ping == nil {
			result[c.Name] = "not_configured"
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, u.timeout)
		err := c.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn(ctx, "health check failed", zap.String("dependency", c.Name), zap.Error(err))
			result[c.Name] = "down"
			result["status"] = HealthDegraded
			continue
		}
		result[c.Name] = "up"
	}
	return result
}
