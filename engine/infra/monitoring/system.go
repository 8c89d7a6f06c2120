package monitoring

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Build variables to be set via ldflags during compilation
// Example: go build -ldflags "-X 'github.com/compozy/triggers/engine/infra/monitoring.Version=v1.0.0'"
var (
	Version    = "unknown"
	CommitHash = "unknown"
)

// getBuildInfo returns build information with fallback strategies
func getBuildInfo() (version, commit, goVersion string) {
	version = Version
	commit = CommitHash
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		if commit == "unknown" {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
					break
				}
			}
		}
	}
	goVersion = runtime.Version()
	return version, commit, goVersion
}

func registerSystemMetrics(reg prometheus.Registerer) error {
	version, commit, goVersion := getBuildInfo()
	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "triggers_build_info",
		Help: "Build information (value=1)",
		ConstLabels: prometheus.Labels{
			"version":     version,
			"commit_hash": commit,
			"go_version":  goVersion,
		},
	})
	buildInfo.Set(1)
	startTime := time.Now()
	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "triggers_uptime_seconds",
		Help: "Service uptime in seconds",
	}, func() float64 { return time.Since(startTime).Seconds() })
	for _, c := range []prometheus.Collector{buildInfo, uptime} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("registering system metrics: %w", err)
		}
	}
	return nil
}
