package update

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// ReleasesURL is the latest-release endpoint of the jpmon repository.
const ReleasesURL = "https://api.github.com/repos/qthlpy-collab/jp-immigration-monitor/releases/latest"

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
	URL           string
}

type ghRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker asks a releases endpoint for the latest published tag.
type Checker struct {
	URL    string
	Client *http.Client
}

// Check returns nil when the current version is the latest or on any error.
func (c Checker) Check(ctx context.Context, currentVersion string) *Result {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	endpoint := c.URL
	if endpoint == "" {
		endpoint = ReleasesURL
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var release ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(currentVersion, "v")

	// Development builds never report an update.
	if latest == "" || latest == current || current == "dev" {
		return nil
	}

	return &Result{LatestVersion: latest, URL: release.HTMLURL}
}
