// version/version.go
package version

import (
	"net/http"
	"runtime"

	"github.com/dalemusser/cinemadb/httputil"
	"go.uber.org/zap"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/dalemusser/cinemadb/pantry/version.Version=1.0.0 \
//	                   -X github.com/dalemusser/cinemadb/pantry/version.Commit=abc123"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info contains version and build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the current version info.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// Fields renders the info as zap fields for the startup log line.
func (i Info) Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", i.Version),
		zap.String("commit", i.Commit),
		zap.String("build_time", i.BuildTime),
		zap.String("go_version", i.GoVersion),
	}
}

// Handler responds with Get() as JSON.
func Handler(logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, Get(), logger)
	})
}
