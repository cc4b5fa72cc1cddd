// mongoconn/dialer.go
package mongoconn

import (
	"context"
	"fmt"

	"github.com/dalemusser/cinemadb/pantry/retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Dialer establishes a client for the given options. Implementations must
// honor ctx and return a usable client or an error, never both.
type Dialer interface {
	Dial(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error)
}

// DialerFunc adapts an ordinary function to the Dialer interface.
type DialerFunc func(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error)

// Dial calls f(ctx, opts).
func (f DialerFunc) Dial(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	return f(ctx, opts)
}

// PingDialer connects and then pings the primary. mongo.Connect on its own
// does no network I/O, so without the ping an unreachable server would
// never surface as a failure.
type PingDialer struct{}

// Dial connects and verifies the server with a primary ping. On a failed
// ping the client is disconnected before returning.
func (PingDialer) Dial(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		// Option/URI problems; retrying cannot fix these.
		return nil, retry.PermanentError(err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}
