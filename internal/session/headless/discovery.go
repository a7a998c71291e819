package headless

import (
	"os/exec"

	"go.uber.org/zap"
)

// Chrome/Chromium binary names and common install locations.
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
}

var lookPath = exec.LookPath

// FindChromePath returns the first Chrome binary found on the system, or ""
// to let chromedp apply its own defaults.
func FindChromePath(logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, name := range chromeBinaryNames {
		if path, err := lookPath(name); err == nil {
			logger.Debug("found Chrome binary", zap.String("name", name), zap.String("path", path))
			return path
		}
	}
	logger.Warn("no Chrome binary found; relying on chromedp defaults")
	return ""
}
