// Package tools implements the Napkin visual tools served over MCP:
// creating and regenerating visuals, polling their status and building
// download advice for generated files.
package tools

import (
	"context"
	"encoding/json"
	"os"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/napkin"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/server"
)

// Tool names
const (
	CreateVisualTool     = "napkin_create_visual_request"
	RegenerateVisualTool = "napkin_regenerate_visual"
	GetStatusTool        = "napkin_get_visual_status"
	DownloadFileTool     = "napkin_download_visual_file"
)

// API is the part of *napkin.Client used by the tools.
type API interface {
	Get(ctx context.Context, path string) (*napkin.Response, error)
	Post(ctx context.Context, path string, body interface{}) (*napkin.Response, error)
	BaseURL() string
}

// Options configure a Toolset
type Options struct {
	// APIKey is shown in the Authorization header of download advice. When
	// empty a placeholder token is shown instead.
	APIKey         string
	// DownloadDir is the directory suggested when the caller gives none.
	// Defaults to the working directory.
	DownloadDir    string
	// DefaultStyleID is sent when a visual request names no style, in place
	// of a catalog pick.
	DefaultStyleID string
	Logger         logging.Logger
}

// Toolset holds the tool handlers and the client they share.
type Toolset struct {
	api    API
	opts   Options
	logger logging.Logger
}

// New creates a Toolset backed by api.
func New(api API, opts Options) *Toolset {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Toolset{
		api:    api,
		opts:   opts,
		logger: logger.WithFields(logging.String("component", "tools")),
	}
}

// Register adds all four tools to registry.
func Register(registry *server.ToolRegistry, api API, opts Options) error {
	return New(api, opts).Register(registry)
}

// Register adds all four tools to registry, in the order they are listed.
func (t *Toolset) Register(registry *server.ToolRegistry) error {
	defs := []server.ToolDefinition{
		{
			Tool: protocol.Tool{
				Name:         CreateVisualTool,
				Title:        "Create Visual Request",
				Description:  "Create a new visual generation request (POST /v1/visual)",
				InputSchema:  createInputSchema,
				OutputSchema: visualOutputSchema,
				Annotations:  &protocol.ToolAnnotations{OpenWorldHint: true},
			},
			Handler: t.CreateVisual,
		},
		{
			Tool: protocol.Tool{
				Name:         RegenerateVisualTool,
				Title:        "Regenerate Visual",
				Description:  "Regenerate existing layout(s) using visual_id or visual_ids (POST /v1/visual)",
				InputSchema:  regenerateInputSchema,
				OutputSchema: visualOutputSchema,
				Annotations:  &protocol.ToolAnnotations{OpenWorldHint: true},
			},
			Handler: t.RegenerateVisual,
		},
		{
			Tool: protocol.Tool{
				Name:         GetStatusTool,
				Title:        "Get Visual Status",
				Description:  "Retrieve generation status (GET /v1/visual/{id}/status)",
				InputSchema:  statusInputSchema,
				OutputSchema: statusOutputSchema,
				Annotations: &protocol.ToolAnnotations{
					ReadOnlyHint:   true,
					IdempotentHint: true,
					OpenWorldHint:  true,
				},
			},
			Handler: t.GetStatus,
		},
		{
			Tool: protocol.Tool{
				Name:         DownloadFileTool,
				Title:        "Download Visual File (advisory)",
				Description:  "Return download guidance and required headers for a generated file (no binary content)",
				InputSchema:  downloadInputSchema,
				OutputSchema: downloadOutputSchema,
				Annotations: &protocol.ToolAnnotations{
					ReadOnlyHint:   true,
					IdempotentHint: true,
				},
			},
			Handler: t.DownloadFile,
		},
	}

	for _, def := range defs {
		if err := registry.Register(def.Tool, def.Handler); err != nil {
			return err
		}
	}
	return nil
}

func (t *Toolset) downloadDir() string {
	if t.opts.DownloadDir != "" {
		return t.opts.DownloadDir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// decodeArgs unmarshals tool arguments into v. Missing arguments leave v
// untouched; malformed ones are a BAD_REQUEST.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return mcperrors.Wrap(err, mcperrors.CodeBadRequest, "Invalid arguments: "+err.Error())
	}
	return nil
}

// validationError folds collected problems into one error, nil when there
// are none.
func validationError(errs []*mcperrors.ToolError) error {
	if te := mcperrors.CombineValidationErrors(errs); te != nil {
		return te
	}
	return nil
}
