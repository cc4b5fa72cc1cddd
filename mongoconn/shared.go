// mongoconn/shared.go
package mongoconn

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

var (
	sharedOnce sync.Once
	shared     *Handle
)

// Init creates and starts the process-wide handle on the first call and
// returns it. Later calls ignore their arguments and return the same handle.
// Code that can take a *Handle as a dependency should do so instead.
func Init(target Target, opts ...Option) *Handle {
	sharedOnce.Do(func() {
		shared = New(target, opts...).Start(context.Background())
	})
	return shared
}

// Shared returns the process-wide handle, starting it against
// DefaultTarget if nothing called Init first.
func Shared(logger *zap.Logger) *Handle {
	return Init(DefaultTarget(), WithLogger(logger))
}
