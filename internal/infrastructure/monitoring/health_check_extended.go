package monitoring

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AddPostgresCheck adds a check that the relational store backing every
// repository is reachable.
func (h *HealthChecker) AddPostgresCheck(db *gorm.DB, interval, timeout time.Duration) {
	h.AddCheck("postgres", func(ctx context.Context) (bool, error) {
		sqlDB, err := db.DB()
		if err != nil {
			return false, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}

// AddRedisCheck adds a check that the broker/lock Redis instance is
// reachable.
func (h *HealthChecker) AddRedisCheck(client *redis.Client, interval, timeout time.Duration) {
	h.AddCheck("redis", func(ctx context.Context) (bool, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}

// AddBusCheck adds a check that the RabbitMQ connection backing the
// cross-service event bus is open.
func (h *HealthChecker) AddBusCheck(conn *amqp.Connection, interval, timeout time.Duration) {
	h.AddCheck("bus", func(ctx context.Context) (bool, error) {
		if conn == nil || conn.IsClosed() {
			return false, fmt.Errorf("amqp connection is closed")
		}
		return true, nil
	}, interval, timeout)
}

// AddCircuitBreakerCheck surfaces how many backends currently have an open
// circuit (spec §4.2 balancer skips unhealthy candidates). Any open circuit
// marks the check unhealthy; the balancer itself keeps serving traffic from
// the remaining backends, so this is meant as an alerting signal, not a
// load-balancer kill switch.
func (h *HealthChecker) AddCircuitBreakerCheck(openCount func() int, interval, timeout time.Duration) {
	h.AddCheck("backend_circuits", func(ctx context.Context) (bool, error) {
		if n := openCount(); n > 0 {
			return false, fmt.Errorf("%d backend(s) with an open circuit", n)
		}
		return true, nil
	}, interval, timeout)
}

// IsReady checks if the service is ready to accept traffic.
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	status := h.CheckAll(ctx)
	return status.Status == "healthy"
}
