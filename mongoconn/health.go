// mongoconn/health.go
package mongoconn

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// HealthCheck returns a readiness probe compatible with the health package.
// It fails until the handle is connected, then pings the primary.
//
// Example:
//
//	health.MountAt(r, "/ready", map[string]health.Check{
//	    "mongo": mongoconn.HealthCheck(h),
//	}, logger)
func HealthCheck(h *Handle) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		client, err := h.Client()
		if err != nil {
			return err
		}
		return client.Ping(ctx, readpref.Primary())
	}
}
