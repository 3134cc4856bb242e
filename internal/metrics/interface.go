package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/monitor"
)

// Collector exports cycle, heartbeat and fault metrics. It is a heartbeat
// sink and a trouble code recorder so it can be plugged into both.
type Collector interface {
	monitor.HeartbeatSink
	core.TroubleCodeRecorder
	ObserveCycle(d time.Duration)
	Listen() error
	Addr() net.Addr
	Serve(ctx context.Context) error
	Handler() http.Handler
}
