package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
)

const visualPath = "/v1/visual"

// CreateVisual handles napkin_create_visual_request.
func (t *Toolset) CreateVisual(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req VisualRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	// Regeneration fields are not part of this tool's input.
	req.VisualID, req.VisualIDs = "", nil

	if err := validationError(validateVisual(&req)); err != nil {
		return nil, err
	}
	return t.submit(ctx, CreateVisualTool, &req)
}

// RegenerateVisual handles napkin_regenerate_visual.
func (t *Toolset) RegenerateVisual(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req VisualRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}

	errs := validateVisual(&req)
	errs = append(errs, validateRegenerate(&req)...)
	if err := validationError(errs); err != nil {
		return nil, err
	}
	return t.submit(ctx, RegenerateVisualTool, &req)
}

func (t *Toolset) submit(ctx context.Context, tool string, req *VisualRequest) (*VisualOutput, error) {
	var source string
	req.StyleID, source = t.styleFor(req)
	t.logger.WithContext(ctx).Debug("Using visual style",
		logging.String("tool", tool),
		logging.String("style_id", req.StyleID),
		logging.String("source", source),
	)

	resp, err := t.api.Post(ctx, visualPath, req)
	if err != nil {
		return nil, err
	}

	var j job
	if err := resp.Decode(&j); err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.CodeInternal, "unexpected response from Napkin API: "+err.Error())
	}
	if err := checkJob(&j); err != nil {
		return nil, err
	}

	t.logger.WithContext(ctx).Info("Visual request accepted",
		logging.String("tool", tool),
		logging.String("visual_request_id", j.ID),
		logging.String("status", j.Status),
	)

	return &VisualOutput{
		ID:             j.ID,
		Status:         j.Status,
		Request:        j.Request,
		GeneratedFiles: j.GeneratedFiles,
		StatusURL:      t.api.BaseURL() + visualPath + "/" + url.PathEscape(j.ID) + "/status",
	}, nil
}

// validateVisual normalizes req in place and reports every rule it breaks.
func validateVisual(req *VisualRequest) []*mcperrors.ToolError {
	var errs []*mcperrors.ToolError

	switch {
	case req.Format == "":
		errs = append(errs, mcperrors.MissingParameter("format"))
	case !oneOf(req.Format, Formats):
		errs = append(errs, mcperrors.InvalidEnum("format", req.Format, Formats))
	}

	if req.Content == "" {
		errs = append(errs, mcperrors.InvalidParameter("content", nil, "content is required"))
	}

	if req.Language != nil && strings.TrimSpace(*req.Language) == "" {
		errs = append(errs, mcperrors.InvalidParameter("language", *req.Language, "must be a non-empty BCP 47 tag"))
	}

	req.StyleID = strings.TrimSpace(req.StyleID)
	req.VisualQuery = strings.TrimSpace(req.VisualQuery)

	if req.VisualQueries != nil {
		if len(req.VisualQueries) == 0 {
			errs = append(errs, mcperrors.InvalidParameter("visual_queries", req.VisualQueries, "must contain at least one query"))
		}
		for i, q := range req.VisualQueries {
			if q == "" {
				errs = append(errs, mcperrors.InvalidParameter(fmt.Sprintf("visual_queries[%d]", i), q, "must not be empty"))
			}
		}
	}
	if req.VisualQuery != "" && req.VisualQueries != nil {
		errs = append(errs, mcperrors.InvalidParameter("visual_query", req.VisualQuery, "Provide only one of visual_query | visual_queries"))
	}

	if n := req.NumberOfVisuals; n != nil {
		if *n < MinVisuals || *n > MaxVisuals {
			errs = append(errs, mcperrors.OutOfRange("number_of_visuals", *n, MinVisuals, MaxVisuals))
		}
		if req.VisualQueries != nil && len(req.VisualQueries) != *n {
			errs = append(errs, mcperrors.InvalidParameter("visual_queries", len(req.VisualQueries), "visual_queries length must equal number_of_visuals"))
		}
	}

	for _, dim := range []struct {
		name  string
		value *int
	}{{"width", req.Width}, {"height", req.Height}} {
		if dim.value != nil && (*dim.value < MinDimension || *dim.value > MaxDimension) {
			errs = append(errs, mcperrors.OutOfRange(dim.name, *dim.value, MinDimension, MaxDimension))
		}
	}
	if req.Format != "png" && (req.Width != nil || req.Height != nil) {
		errs = append(errs, mcperrors.InvalidParameter("width", req.Width, "width/height are allowed only when format is 'png'"))
	}

	if req.Orientation != "" && !oneOf(req.Orientation, Orientations) {
		errs = append(errs, mcperrors.InvalidEnum("orientation", req.Orientation, Orientations))
	}

	return errs
}

func validateRegenerate(req *VisualRequest) []*mcperrors.ToolError {
	var errs []*mcperrors.ToolError

	req.VisualID = strings.TrimSpace(req.VisualID)

	hasID, hasIDs := req.VisualID != "", req.VisualIDs != nil
	if hasID == hasIDs {
		errs = append(errs, mcperrors.InvalidParameter("visual_id", req.VisualID, "Provide exactly one of visual_id or visual_ids"))
	}

	if hasIDs {
		if len(req.VisualIDs) == 0 {
			errs = append(errs, mcperrors.InvalidParameter("visual_ids", req.VisualIDs, "must contain at least one id"))
		}
		for i, id := range req.VisualIDs {
			if id == "" {
				errs = append(errs, mcperrors.InvalidParameter(fmt.Sprintf("visual_ids[%d]", i), id, "must not be empty"))
			}
		}
	}

	if n := req.NumberOfVisuals; n != nil {
		if hasID && *n > 1 {
			errs = append(errs, mcperrors.InvalidParameter("visual_id", req.VisualID, "visual_id cannot be used when number_of_visuals > 1"))
		}
		if hasIDs && len(req.VisualIDs) != *n {
			errs = append(errs, mcperrors.InvalidParameter("visual_ids", len(req.VisualIDs), "visual_ids length must equal number_of_visuals"))
		}
	}

	return errs
}

// checkJob rejects job documents the tools cannot report on.
func checkJob(j *job) error {
	if _, err := uuid.Parse(j.ID); err != nil {
		return mcperrors.Newf(mcperrors.CodeInternal, "unexpected response from Napkin API: invalid job id %q", j.ID)
	}
	if !oneOf(j.Status, jobStates) {
		return mcperrors.Newf(mcperrors.CodeInternal, "unexpected response from Napkin API: invalid job status %q", j.Status)
	}
	return nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
