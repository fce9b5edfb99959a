package gateway

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/frostbytespace/hiven-go/metric"
)

type gatewayMetrics struct {
	state      prometheus.Gauge
	frames     prometheus.Counter
	heartbeats prometheus.Counter
	reconnects prometheus.Counter
}

func newGatewayMetrics(registry *metric.Registry) *gatewayMetrics {
	if registry == nil {
		return nil
	}
	m := &gatewayMetrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiven_gateway_state",
			Help: "Current connection state (0 disconnected through 5 closing)",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiven_gateway_frames_total",
			Help: "Frames received on the websocket",
		}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiven_gateway_heartbeats_total",
			Help: "Heartbeat frames sent",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiven_gateway_reconnects_total",
			Help: "Reconnect attempts after a failed session",
		}),
	}
	_ = registry.RegisterGauge("gateway", "state", m.state)
	_ = registry.RegisterCounter("gateway", "frames_total", m.frames)
	_ = registry.RegisterCounter("gateway", "heartbeats_total", m.heartbeats)
	_ = registry.RegisterCounter("gateway", "reconnects_total", m.reconnects)
	return m
}
