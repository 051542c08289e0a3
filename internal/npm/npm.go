// Package npm talks to the npm registry: live published metadata, dist-tag
// maps, tagging, publishing, and installing the published artifact for
// inspection.
package npm

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/git-pkgs/publisher/client"
	"github.com/git-pkgs/publisher/internal/core"
)

const (
	DefaultURL = "https://registry.npmjs.org"
)

// Registry is the live npm registry collaborator.
type Registry struct {
	baseURL string
	client  *client.Client
}

// New creates a registry collaborator. An empty baseURL uses the public npm
// registry; a nil client uses client.DefaultClient().
func New(baseURL string, c *client.Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = client.DefaultClient()
	}
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  c,
	}
}

type packageResponse struct {
	Name     string                 `json:"name"`
	DistTags map[string]string      `json:"dist-tags"`
	Versions map[string]versionInfo `json:"versions"`
	Time     map[string]string      `json:"time"`
}

type versionInfo struct {
	Version     string   `json:"version"`
	ContentHash string   `json:"typesPublisherContentHash"`
	Dist        distInfo `json:"dist"`
}

type distInfo struct {
	Tarball   string `json:"tarball"`
	Integrity string `json:"integrity"`
}

func (r *Registry) fetchDocument(ctx context.Context, name string) (*packageResponse, error) {
	u := fmt.Sprintf("%s/%s", r.baseURL, url.PathEscape(name))

	var resp packageResponse
	if err := r.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", name, err)
	}
	return &resp, nil
}

// FetchMetadata returns the live published state of name. The highest semver
// is computed over every published version, tagged or not; a highest version
// above the "latest" tag is how an interrupted publish is detected.
func (r *Registry) FetchMetadata(ctx context.Context, name string) (*core.PublishedMetadata, error) {
	doc, err := r.fetchDocument(ctx, name)
	if err != nil {
		return nil, err
	}

	latest := doc.DistTags["latest"]
	version, ok := core.ParseSemver(latest)
	if !ok {
		return nil, fmt.Errorf("%s: latest tag %q is not a semantic version", name, latest)
	}

	highest := version
	for num := range doc.Versions {
		if v, ok := core.ParseSemver(num); ok && v.Compare(highest) > 0 {
			highest = v
		}
	}

	var modified time.Time
	if ts, ok := doc.Time["modified"]; ok {
		modified, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("%s: parsing modified time %q: %w", name, ts, err)
		}
	}

	return &core.PublishedMetadata{
		Version:       version,
		HighestSemver: highest,
		ContentHash:   doc.Versions[latest].ContentHash,
		LastModified:  modified,
	}, nil
}

// DistTags returns the dist-tag map for name.
func (r *Registry) DistTags(ctx context.Context, name string) (map[string]string, error) {
	doc, err := r.fetchDocument(ctx, name)
	if err != nil {
		return nil, err
	}
	return doc.DistTags, nil
}

// Tag points tag at version on the registry.
func (r *Registry) Tag(ctx context.Context, name, version, tag string) error {
	u := fmt.Sprintf("%s/-/package/%s/dist-tags/%s", r.baseURL, url.PathEscape(name), url.PathEscape(tag))
	if err := r.client.PutJSON(ctx, u, version, nil); err != nil {
		return fmt.Errorf("tagging %s@%s as %s: %w", name, version, tag, err)
	}
	return nil
}

// Publish runs npm publish in dir under the "next" staging tag. Without an
// explicit tag the npm CLI points "latest" at the fresh version immediately;
// staging keeps "latest" untouched until the published artifact passes
// verification and is promoted by an explicit Tag call. The npm CLI owns
// authentication and tarball assembly; dry-run is passed straight through.
func (r *Registry) Publish(ctx context.Context, dir string, dryRun bool) error {
	cmd := exec.CommandContext(ctx, "npm", publishArgs(r.baseURL, dryRun)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("npm publish in %s: %w\n%s", dir, err, out)
	}
	return nil
}

func publishArgs(registry string, dryRun bool) []string {
	args := []string{"publish", "--registry", registry, "--tag", "next"}
	if dryRun {
		args = append(args, "--dry-run")
	}
	return args
}

// InstallForInspection downloads and unpacks name at versionOrTag, returning
// the unpacked package root. This mirrors what a consumer installing the
// package would get.
func (r *Registry) InstallForInspection(ctx context.Context, name, versionOrTag string) (string, error) {
	doc, err := r.fetchDocument(ctx, name)
	if err != nil {
		return "", err
	}

	version := versionOrTag
	if v, ok := doc.DistTags[versionOrTag]; ok {
		version = v
	}
	info, ok := doc.Versions[version]
	if !ok {
		return "", fmt.Errorf("%s: version %s not published", name, version)
	}

	tarball := info.Dist.Tarball
	if tarball == "" {
		tarball = client.TarballURL(r.baseURL, name, version)
	}

	body, err := r.client.Download(ctx, tarball)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", tarball, err)
	}
	defer body.Close()

	dir, err := os.MkdirTemp("", "registry-install-")
	if err != nil {
		return "", err
	}
	root, err := extractTarball(body, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("unpacking %s: %w", tarball, err)
	}
	return root, nil
}

// extractTarball unpacks an npm tarball (gzipped tar with a top-level
// "package/" prefix) into dir and returns the package root.
func extractTarball(r io.Reader, dir string) (string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return "", err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		target := filepath.Join(dir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
			return "", fmt.Errorf("tarball entry escapes destination: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return "", err
			}
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return "", err
			}
			if err := f.Close(); err != nil {
				return "", err
			}
		}
	}
	return filepath.Join(dir, "package"), nil
}
