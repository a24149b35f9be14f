// Package browser opens web pages and generated reports in the default browser.
package browser

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// start launches cmd. Replaced in tests.
var start = func(cmd *exec.Cmd) error { return cmd.Start() }

// Open opens the specified URL in the default browser.
// It validates the URL before passing it to the system browser to prevent command injection.
func Open(urlString string) error {
	// Validate URL to prevent command injection (fixes G204/CWE-78)
	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	// Whitelist allowed schemes to prevent malicious URLs
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https allowed)", parsedURL.Scheme)
	}

	return launch(parsedURL.String())
}

// OpenFile opens a local artifact such as a rendered HTML report.
// The path must name an existing regular file.
func OpenFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("cannot open %s: not a regular file", path)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return launch(u.String())
}

func launch(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", target) // #nosec G204 -- target validated by caller
	case "darwin":
		cmd = exec.Command("open", target) // #nosec G204 -- target validated by caller
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target) // #nosec G204 -- target validated by caller
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return start(cmd)
}
