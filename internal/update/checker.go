// ===== internal/update/checker.go =====
package update

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"dhcpwatch/internal/log"
	"dhcpwatch/pkg/models"
)

// Checker compares the running version with the latest published release
type Checker struct {
	client  *http.Client
	baseURL string
	repo    string
	current string
}

type release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// NewHTTPClient returns the client used for release checks
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   6 * time.Second,
		KeepAlive: 15 * time.Second,
	}

	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext:     dialer.DialContext,
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// NewChecker creates a checker for repo ("owner/name") against the GitHub
// style API at baseURL
func NewChecker(client *http.Client, baseURL, repo, current string) *Checker {
	if client == nil {
		client = NewHTTPClient()
	}
	return &Checker{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		repo:    repo,
		current: current,
	}
}

// Check fetches the latest release. Without a configured repository it
// reports the current version only.
func (c *Checker) Check(ctx context.Context) (models.UpdateInfo, error) {
	info := models.UpdateInfo{CurrentVersion: c.current}
	if c.repo == "" {
		return info, nil
	}

	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return info, fmt.Errorf("failed to build release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "dhcpwatch/"+c.current)

	resp, err := c.client.Do(req)
	if err != nil {
		return info, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return info, fmt.Errorf("release check returned %s", resp.Status)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return info, fmt.Errorf("failed to decode release: %w", err)
	}

	info.LatestVersion = rel.TagName
	info.ReleaseInfo = rel.Body
	info.DownloadURL = rel.HTMLURL
	if len(rel.Assets) > 0 {
		info.DownloadURL = rel.Assets[0].BrowserDownloadURL
	}
	info.HasUpdate = newer(rel.TagName, c.current)

	log.Logger.Debugf("Release check: current %s, latest %s, update %t", c.current, rel.TagName, info.HasUpdate)
	return info, nil
}

// newer reports whether latest is a higher semantic version than current
func newer(latest, current string) bool {
	l, c := canonical(latest), canonical(current)
	if !semver.IsValid(l) || !semver.IsValid(c) {
		return false
	}
	return semver.Compare(l, c) > 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
