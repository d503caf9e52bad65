package tools

// Job states reported by the Napkin API
const (
	StatePending   = "pending"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Accepted enum values
var (
	Formats      = []string{"svg", "png", "ppt"}
	Orientations = []string{"auto", "horizontal", "vertical", "square"}
	jobStates    = []string{StatePending, StateCompleted, StateFailed}
)

// Limits on visual requests
const (
	MinVisuals   = 1
	MaxVisuals   = 4
	MinDimension = 100
	MaxDimension = 10000
)

// VisualRequest is the body of POST /v1/visual. The API echoes it back in
// status responses, so it also serves as the request echo.
type VisualRequest struct {
	Format                string   `json:"format,omitempty"`
	Content               string   `json:"content,omitempty"`
	Context               *string  `json:"context,omitempty"`
	Language              *string  `json:"language,omitempty"`
	StyleID               string   `json:"style_id,omitempty"`
	VisualID              string   `json:"visual_id,omitempty"`
	VisualIDs             []string `json:"visual_ids,omitempty"`
	VisualQuery           string   `json:"visual_query,omitempty"`
	VisualQueries         []string `json:"visual_queries,omitempty"`
	NumberOfVisuals       *int     `json:"number_of_visuals,omitempty"`
	TransparentBackground *bool    `json:"transparent_background,omitempty"`
	InvertedColor         *bool    `json:"inverted_color,omitempty"`
	Width                 *int     `json:"width,omitempty"`
	Height                *int     `json:"height,omitempty"`
	Orientation           string   `json:"orientation,omitempty"`
}

// GeneratedFile is one rendered file of a completed job.
type GeneratedFile struct {
	URL         string `json:"url"`
	VisualID    string `json:"visual_id,omitempty"`
	VisualQuery string `json:"visual_query,omitempty"`
	StyleID     string `json:"style_id,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// job is the part of a Napkin job document the tools read.
type job struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	Request        *VisualRequest  `json:"request,omitempty"`
	GeneratedFiles []GeneratedFile `json:"generated_files,omitempty"`
}

// VisualOutput is returned by the create and regenerate tools.
type VisualOutput struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	Request        *VisualRequest  `json:"request,omitempty"`
	GeneratedFiles []GeneratedFile `json:"generated_files,omitempty"`
	StatusURL      string          `json:"statusUrl,omitempty"`
}

// StatusOutput is returned by the status tool.
type StatusOutput struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	Request        *VisualRequest  `json:"request,omitempty"`
	GeneratedFiles []GeneratedFile `json:"generated_files,omitempty"`
	Hint           string          `json:"_hint,omitempty"`
}

// DownloadOutput is the advice returned by the download tool.
type DownloadOutput struct {
	Advisory          string            `json:"advisory"`
	HeadersRequired   map[string]string `json:"headersRequired"`
	SuggestedFilename string            `json:"suggestedFilename,omitempty"`
	DownloadPath      string            `json:"downloadPath,omitempty"`
}
