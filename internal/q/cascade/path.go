package cascade

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var isWindows = runtime.GOOS == "windows"

// ExpandPath expands a leading "~" (meaning home directory) and makes path absolute. It works on Windows too, which does not traditionally treat "~" as home.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}

	expanded := path
	if strings.HasPrefix(expanded, "~") {
		if home, _ := os.UserHomeDir(); home != "" {
			switch {
			case expanded == "~" || expanded == "~/" || expanded == `~\`:
				expanded = home
			case strings.HasPrefix(expanded, "~/") || strings.HasPrefix(expanded, `~\`):
				expanded = filepath.Join(home, expanded[2:])
			}
		}
	}

	if !filepath.IsAbs(expanded) {
		if abs, err := filepath.Abs(expanded); err == nil {
			expanded = abs
		}
	}
	return expanded
}

// InUserConfigDirectory returns the absolute path of subPath inside the user's config location: the home directory, or %USERPROFILE%\AppData\Local on Windows.
func InUserConfigDirectory(subPath string) string {
	if isWindows {
		return filepath.Join(ExpandPath("~/AppData/Local"), subPath)
	}
	return filepath.Join(ExpandPath("~"), subPath)
}
