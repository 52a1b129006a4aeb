package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/quanghiep03198/rfid-agent/internal/config"
	"github.com/quanghiep03198/rfid-agent/internal/types"
)

// maxMetadataBytes caps how much of a metadata response is read.
const maxMetadataBytes = 1 << 20

// archiveExtensions are the suffixes treated as direct archive downloads.
var archiveExtensions = []string{".zip", ".tar.gz", ".tgz"}

// ReferenceResolver resolves update references of three shapes: a local
// descriptor file, a local or remote archive path, and a remote metadata
// endpoint.
type ReferenceResolver struct {
	client *http.Client
	logger *log.Logger
}

// ResolverOption configures a ReferenceResolver.
type ResolverOption func(*ReferenceResolver)

// WithResolverClient sets the HTTP client used for metadata endpoints.
func WithResolverClient(c *http.Client) ResolverOption {
	return func(r *ReferenceResolver) {
		r.client = c
	}
}

// NewResolver creates a ReferenceResolver.
func NewResolver(logger *log.Logger, opts ...ResolverOption) *ReferenceResolver {
	r := &ReferenceResolver{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve turns ref into a ReleaseDescriptor. The returned descriptor always
// has a non-empty DownloadURL. A remote metadata endpoint that cannot be
// fetched or parsed is not an error: the reference itself becomes the
// download location.
func (r *ReferenceResolver) Resolve(ctx context.Context, ref string) (*ReleaseDescriptor, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty update reference", ErrResolution)
	}

	if isRemote(ref) {
		return r.resolveRemote(ctx, ref)
	}
	return r.resolveLocal(ref)
}

// CheckForUpdates reports whether the release behind ref should be installed
// over current. It returns false only when ref resolves to a concrete
// version equal to current.
func (r *ReferenceResolver) CheckForUpdates(ctx context.Context, ref, current string) bool {
	desc, err := r.Resolve(ctx, ref)
	if err != nil {
		r.logger.Warn("Could not resolve release, assuming update is available", "error", err)
		return true
	}

	if !NeedsUpdate(desc.Version, current) {
		r.logger.Info("Current version is up to date", "version", current)
		return false
	}

	r.logger.Info("Update available", "current", current, "latest", desc.Version)
	return true
}

func (r *ReferenceResolver) resolveRemote(ctx context.Context, ref string) (*ReleaseDescriptor, error) {
	if isArchive(remotePath(ref)) {
		r.logger.Debug("Direct archive reference", "url", ref)
		return directArchive(ref), nil
	}

	d, err := r.fetchDescriptor(ctx, ref)
	if err != nil {
		r.logger.Warn("Failed to get release metadata, treating reference as direct download", "url", ref, "error", err)
		desc := directArchive(ref)
		desc.Degraded = true
		return desc, nil
	}

	location := d.Location()
	if location == "" {
		location = ref
	} else if !isRemote(location) {
		if base, err := url.Parse(ref); err == nil {
			if rel, err := url.Parse(location); err == nil {
				location = base.ResolveReference(rel).String()
			}
		}
	}

	return &ReleaseDescriptor{
		Version:     versionOrUnknown(d.Version),
		DownloadURL: location,
		Kind:        types.ReferenceMetadata,
		Reference:   ref,
		Notes:       d.Notes,
	}, nil
}

func (r *ReferenceResolver) fetchDescriptor(ctx context.Context, ref string) (*config.Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml, application/toml, */*")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	return config.ParseDescriptor(remotePath(ref), body)
}

func (r *ReferenceResolver) resolveLocal(ref string) (*ReleaseDescriptor, error) {
	path := localPath(ref)
	if isArchive(path) {
		r.logger.Debug("Direct archive reference", "path", path)
		return directArchive(ref), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrResolution, path)
	}

	d, err := config.LoadDescriptor(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolution, err)
	}

	location := d.Location()
	switch {
	case location == "":
		location = ref
	case !isRemote(location) && !strings.HasPrefix(location, "file://") && !filepath.IsAbs(location):
		location = filepath.Join(filepath.Dir(path), location)
	}

	return &ReleaseDescriptor{
		Version:     versionOrUnknown(d.Version),
		DownloadURL: location,
		Kind:        types.ReferenceDescriptor,
		Reference:   ref,
		Notes:       d.Notes,
	}, nil
}

func directArchive(ref string) *ReleaseDescriptor {
	return &ReleaseDescriptor{
		Version:     UnknownVersion,
		DownloadURL: ref,
		Kind:        types.ReferenceArchive,
		Reference:   ref,
	}
}

func versionOrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return UnknownVersion
	}
	return strings.TrimSpace(v)
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// localPath strips a file:// scheme.
func localPath(ref string) string {
	if strings.HasPrefix(strings.ToLower(ref), "file://") {
		return ref[len("file://"):]
	}
	return ref
}

// remotePath returns the path component of a URL, ignoring any query.
func remotePath(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return u.Path
}

func isArchive(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
