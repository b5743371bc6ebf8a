/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const moduleName = "github.com/acronis/go-throttledio"

// PrometheusLibVersionLabel is a name of the constant label with the library version added to all metrics.
const PrometheusLibVersionLabel = "go_throttledio_version"

// AddPrometheusLibVersionLabel returns a copy of labels with the library version label.
func AddPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	labelsCopy := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		labelsCopy[k] = v
	}
	labelsCopy[PrometheusLibVersionLabel] = GetLibVersion()
	return labelsCopy
}

var (
	libVersion     string
	libVersionOnce sync.Once
)

// GetLibVersion returns the version of the library the binary was built with.
// If the library is the main module (e.g. in tests or in its own commands), "(devel)" or "v0.0.0" is returned.
func GetLibVersion() string {
	libVersionOnce.Do(func() {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			libVersion = extractLibVersion(buildInfo, moduleName)
		}
		if libVersion == "" {
			libVersion = "v0.0.0"
		}
	})
	return libVersion
}

// extractLibVersion looks for modName (with an optional /vN major version suffix)
// among the main module and dependencies of the build.
func extractLibVersion(buildInfo *buildinfo.BuildInfo, modName string) string {
	if buildInfo == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	if re.MatchString(buildInfo.Main.Path) {
		return buildInfo.Main.Version
	}
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
