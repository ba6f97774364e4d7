package version

import (
	"runtime"
	"time"
)

// Set with -ldflags "-X moviefilter-bot/internal/version.Version=v1.2.0".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = time.Now().Format(time.RFC3339)
	GoVersion = runtime.Version()
)
