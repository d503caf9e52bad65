package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"path"
	"strings"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
)

const placeholderToken = "YOUR_TOKEN_HERE"

type downloadArgs struct {
	DownloadURL       string `json:"downloadUrl"`
	RequestID         string `json:"requestId"`
	FileID            string `json:"fileId"`
	DownloadDirectory string `json:"downloadDirectory"`
}

// DownloadFile handles napkin_download_visual_file. It never fetches the
// file; it tells the caller where and how to.
func (t *Toolset) DownloadFile(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in downloadArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	fileURL, err := t.fileURL(in)
	if err != nil {
		return nil, err
	}

	dir := in.DownloadDirectory
	if dir == "" {
		dir = t.downloadDir()
	}

	token := t.opts.APIKey
	if token == "" {
		token = placeholderToken
	}

	return &DownloadOutput{
		Advisory: strings.Join([]string{
			"Use the URL to download the binary file within ~30 minutes of generation:",
			fileURL,
			"Download directory: " + dir,
			"Always include the Authorization header. Do not hotlink these URLs in your UI; download and host files yourself.",
		}, "\n"),
		HeadersRequired:   map[string]string{"Authorization": "Bearer " + token},
		SuggestedFilename: suggestedFilename(fileURL),
		DownloadPath:      dir,
	}, nil
}

// fileURL resolves the file location. A valid downloadUrl wins over
// requestId and fileId.
func (t *Toolset) fileURL(in downloadArgs) (string, error) {
	if in.DownloadURL != "" && isAbsoluteURL(in.DownloadURL) {
		return in.DownloadURL, nil
	}

	if in.RequestID == "" && in.FileID == "" {
		if in.DownloadURL != "" {
			return "", mcperrors.InvalidParameter("downloadUrl", in.DownloadURL, "must be an absolute http(s) URL")
		}
		return "", mcperrors.MissingParameter("downloadUrl or requestId and fileId")
	}

	var errs []*mcperrors.ToolError
	if err := checkRequestID(in.RequestID); err != nil {
		errs = append(errs, err)
	}
	if in.FileID == "" {
		errs = append(errs, mcperrors.MissingParameter("fileId"))
	}
	if err := validationError(errs); err != nil {
		return "", err
	}

	return t.api.BaseURL() + visualPath + "/" + url.PathEscape(in.RequestID) + "/file/" + url.PathEscape(in.FileID), nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// suggestedFilename returns the last path element of the URL when it
// looks like a file name.
func suggestedFilename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if path.Ext(name) == "" {
		return ""
	}
	return name
}
