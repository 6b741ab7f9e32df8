package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Open launches the system browser on rawURL. Only http and https URLs are accepted.
func Open(rawURL string) error {
	args, err := command(runtime.GOOS, rawURL)
	if err != nil {
		return err
	}
	return exec.Command(args[0], args[1:]...).Start()
}

func validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q (only http/https allowed)", u.Scheme)
	}
	return nil
}

// command returns the launcher invocation for goos.
func command(goos, rawURL string) ([]string, error) {
	if err := validate(rawURL); err != nil {
		return nil, err
	}
	switch goos {
	case "darwin":
		return []string{"open", rawURL}, nil
	case "windows":
		// Use rundll32 instead of cmd /c start to avoid shell interpretation
		return []string{"rundll32", "url.dll,FileProtocolHandler", rawURL}, nil
	default:
		return []string{"xdg-open", rawURL}, nil
	}
}
