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

type statusArgs struct {
	RequestID string `json:"requestId"`
}

// GetStatus handles napkin_get_visual_status.
func (t *Toolset) GetStatus(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in statusArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	requestID := strings.TrimSpace(in.RequestID)
	if err := checkRequestID(requestID); err != nil {
		return nil, err
	}

	resp, err := t.api.Get(ctx, visualPath+"/"+url.PathEscape(requestID)+"/status")
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

	t.logger.WithContext(ctx).Debug("Visual status",
		logging.String("visual_request_id", j.ID),
		logging.String("status", j.Status),
		logging.Int("files", len(j.GeneratedFiles)),
	)

	return &StatusOutput{
		ID:             j.ID,
		Status:         j.Status,
		Request:        j.Request,
		GeneratedFiles: j.GeneratedFiles,
		Hint:           statusHint(j.Status, len(j.GeneratedFiles)),
	}, nil
}

// statusHint tells the caller what to do next for a job state.
func statusHint(status string, files int) string {
	switch {
	case status == StateCompleted && files > 0:
		return fmt.Sprintf("Visual generation completed! %d file(s) ready for download. Use %s to download the generated files.", files, DownloadFileTool)
	case status == StateFailed:
		return "Visual generation failed. Check the status details for error information."
	case status == StatePending:
		return "Visual generation in progress. Check status again in a few moments."
	default:
		return ""
	}
}

func checkRequestID(requestID string) *mcperrors.ToolError {
	if requestID == "" {
		return mcperrors.MissingParameter("requestId")
	}
	if _, err := uuid.Parse(requestID); err != nil {
		return mcperrors.InvalidParameter("requestId", requestID, "must be a UUID")
	}
	return nil
}
