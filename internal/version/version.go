// Package version carries build metadata set through -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Overridden at build time:
//
//	go build -ldflags "-X github.com/odl-optics/remains-relay/internal/version.GitRelease=v1.2.0"
var (
	GitRelease = "dev"
	GitCommit  = "unknown"
	BuildDate  = "unknown"
)

// GoInfo is the toolchain and platform the binary was built for.
var GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)

// UserAgent identifies the relay to the upstream API.
func UserAgent() string {
	return "remains-relay/" + GitRelease
}
