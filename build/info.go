package build

import "runtime/debug"

const unknown = "unknown"

type Info struct {
	Path       string `json:"path,omitempty"`
	GoVersion  string `json:"goVersion,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
	CommitTime string `json:"commitTime,omitempty"`
	Modified   bool   `json:"modified,omitempty"`
}

// GetBuildInfo reads the VCS stamp embedded by the Go toolchain.
// Fields that were not stamped are reported as "unknown".
func GetBuildInfo() *Info {
	result := &Info{
		Path:       unknown,
		GoVersion:  unknown,
		CommitHash: unknown,
		CommitTime: unknown,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return result
	}

	result.Path = bi.Main.Path
	result.GoVersion = bi.GoVersion

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			result.CommitHash = s.Value
		case "vcs.time":
			result.CommitTime = s.Value
		case "vcs.modified":
			result.Modified = s.Value == "true"
		}
	}
	return result
}
