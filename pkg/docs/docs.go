// Package docs serves local markdown documentation as MCP resources.
//
// Every .md file below the docs directory is listed under a
// napkin-docs:///docs/<path> URI. Reads are confined to the directory:
// paths that climb out of it, directly or through symlinks, are refused.
package docs

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
)

const (
	// Scheme is the URI scheme of documentation resources
	Scheme = "napkin-docs"

	// prefix is the URI path segment all documents live under
	prefix = "docs/"

	mimeType = "text/markdown"
)

// Provider lists and reads markdown files below a directory. It implements
// server.ResourceProvider.
type Provider struct {
	dir    string
	logger logging.Logger
}

// New creates a provider rooted at dir. The directory need not exist; a
// missing directory lists no resources.
func New(dir string, logger logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{
		dir:    dir,
		logger: logger.WithFields(logging.String("component", "docs")),
	}
}

// URI returns the resource URI of the document at rel, a slash-separated
// path relative to the docs directory.
func URI(rel string) string {
	return Scheme + ":///" + prefix + rel
}

// ListResources returns every markdown document, sorted by URI.
func (p *Provider) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	root, err := os.OpenRoot(p.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Debug("Docs directory not found", logging.String("dir", p.dir))
			return []protocol.Resource{}, nil
		}
		return nil, err
	}
	defer root.Close()

	var resources []protocol.Resource
	err = fs.WalkDir(root.FS(), ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(rel, ".md") {
			return nil
		}

		res := protocol.Resource{
			URI:         URI(rel),
			Name:        Scheme + ":" + prefix + rel,
			Title:       "Napkin Doc: " + prefix + rel,
			Description: "Local documentation file exposed by the Napkin MCP server",
			MimeType:    mimeType,
		}
		if info, err := d.Info(); err == nil {
			res.Size = info.Size()
		}
		resources = append(resources, res)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(resources, func(i, j int) bool { return resources[i].URI < resources[j].URI })
	return resources, nil
}

// ReadResource returns the text of the document named by uri.
func (p *Provider) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	rel, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(p.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, mcperrors.ResourceNotFound(uri)
		}
		return nil, err
	}
	defer root.Close()

	data, err := fs.ReadFile(root.FS(), rel)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, mcperrors.ResourceNotFound(uri)
	case err != nil && strings.Contains(err.Error(), "escapes from parent"):
		// A symlink pointing outside the docs directory.
		return nil, accessDenied(uri)
	case err != nil:
		return nil, err
	}

	p.logger.Debug("Read doc", logging.String("uri", uri), logging.Int("bytes", len(data)))
	return []protocol.ResourceContents{{URI: uri, MimeType: mimeType, Text: string(data)}}, nil
}

// parseURI maps a napkin-docs URI to a path relative to the docs directory.
func parseURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != Scheme {
		return "", mcperrors.ResourceNotFound(uri)
	}

	p := strings.TrimLeft(u.Path, "/")
	if !strings.HasPrefix(p, prefix) {
		return "", accessDenied(uri)
	}
	rel := strings.TrimPrefix(p, prefix)
	if !fs.ValidPath(rel) || rel == "." || path.Clean(rel) != rel {
		return "", accessDenied(uri)
	}
	if !strings.HasSuffix(rel, ".md") {
		return "", mcperrors.ResourceNotFound(uri)
	}
	return rel, nil
}

func accessDenied(uri string) error {
	return mcperrors.InvalidParams("access denied: " + uri)
}
