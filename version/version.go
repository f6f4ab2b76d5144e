// Package version holds build metadata injected at link time.
//
//	go build -ldflags "-X github.com/jackzampolin/splitbook/version.GitRelease=v0.2.0 ..."
package version

import (
	"fmt"
	"runtime"
)

var (
	// GitRelease is the release tag the binary was built from.
	GitRelease = "dev"
	// GitCommit is the commit hash the binary was built from.
	GitCommit = "unknown"
	// GitCommitDate is the date of GitCommit.
	GitCommitDate = "unknown"
	// GoInfo describes the toolchain and platform.
	GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)
