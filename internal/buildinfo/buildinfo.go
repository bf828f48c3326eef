package buildinfo

import (
	"fmt"
	"runtime"
)

// Set at link time with -ldflags "-X github.com/aalvaropc/doclane/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("doclane %s (commit=%s, date=%s, %s/%s)", Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies doclane to the processing service.
func UserAgent() string {
	return "doclane/" + Version
}
