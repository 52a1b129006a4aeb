package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quanghiep03198/rfid-agent/internal/types"
)

// DefaultAssetTemplate is the archive naming convention of published releases.
const DefaultAssetTemplate = "rfid-agent-{tag}-windows-x64.zip"

// UpdateInfo describes the newest published release relative to a version.
type UpdateInfo struct {
	Available      bool   `json:"available" yaml:"available"`
	CurrentVersion string `json:"current_version" yaml:"current_version"`
	LatestVersion  string `json:"latest_version" yaml:"latest_version"`
	ReleaseURL     string `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	AssetURL       string `json:"asset_url,omitempty" yaml:"asset_url,omitempty"`
}

// GitHubChecker finds the latest release via the GitHub API
type GitHubChecker struct {
	githubToken string // Optional, for rate limiting
	owner       string // Repository owner
	repo        string // Repository name
	asset       string // Asset name template
	target      Target
	client      *http.Client
	baseURL     string // Base URL for GitHub API (for testing)
	downloadURL string // Base URL release assets are served from
}

// GitHubRelease represents a GitHub release response
type GitHubRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	HTMLURL    string `json:"html_url"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// NewGitHubChecker creates a new GitHub checker
func NewGitHubChecker(owner, repo string) *GitHubChecker {
	return &GitHubChecker{
		owner:  owner,
		repo:   repo,
		asset:  DefaultAssetTemplate,
		target: Detect(),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     "https://api.github.com",
		downloadURL: "https://github.com",
	}
}

// WithToken sets an optional GitHub token for authentication
func (c *GitHubChecker) WithToken(token string) *GitHubChecker {
	c.githubToken = token
	return c
}

// WithAsset sets the asset name template.
func (c *GitHubChecker) WithAsset(template string) *GitHubChecker {
	if template != "" {
		c.asset = template
	}
	return c
}

// WithBaseURL points the checker at another API host.
func (c *GitHubChecker) WithBaseURL(url string) *GitHubChecker {
	if url != "" {
		c.baseURL = strings.TrimRight(url, "/")
	}
	return c
}

// LatestRelease returns the latest published release as a descriptor. The
// download URL is the matching release asset when the release lists one,
// otherwise it is synthesized from the asset naming convention.
func (c *GitHubChecker) LatestRelease(ctx context.Context) (*ReleaseDescriptor, error) {
	release, err := c.getLatestRelease(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest release: %w", err)
	}
	if strings.TrimSpace(release.TagName) == "" {
		return nil, fmt.Errorf("latest release has no tag")
	}

	return &ReleaseDescriptor{
		Version:     release.TagName,
		DownloadURL: c.assetURL(release),
		Kind:        types.ReferenceArchive,
		Reference:   release.HTMLURL,
		Notes:       release.Body,
	}, nil
}

// CheckForUpdate checks if a release newer than current is published.
func (c *GitHubChecker) CheckForUpdate(ctx context.Context, current string) (*UpdateInfo, error) {
	desc, err := c.LatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	cmp, err := CompareVersions(desc.Version, current)
	if err != nil {
		return nil, err
	}

	return &UpdateInfo{
		Available:      cmp > 0,
		CurrentVersion: NormalizeVersion(current),
		LatestVersion:  NormalizeVersion(desc.Version),
		ReleaseURL:     desc.Reference,
		AssetURL:       desc.DownloadURL,
	}, nil
}

// getLatestRelease fetches the latest release from GitHub API
func (c *GitHubChecker) getLatestRelease(ctx context.Context) (*GitHubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	// Set headers
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.githubToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.githubToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes)).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &release, nil
}

// assetURL finds the archive for this target in the release assets, falling
// back to the conventional download path.
func (c *GitHubChecker) assetURL(release *GitHubRelease) string {
	name := c.target.AssetName(c.asset, release.TagName)

	for _, asset := range release.Assets {
		if asset.Name == name && asset.BrowserDownloadURL != "" {
			return asset.BrowserDownloadURL
		}
	}

	return fmt.Sprintf("%s/%s/%s/releases/download/%s/%s",
		c.downloadURL, c.owner, c.repo, release.TagName, name)
}
