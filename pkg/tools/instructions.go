package tools

import "strings"

// Instructions is sent to clients in the initialize result.
var Instructions = strings.Join([]string{
	"[Usage]",
	"1) Tool flow: create or regenerate, poll " + GetStatusTool + " until the job is completed or failed, then call " + DownloadFileTool + " for each generated file.",
	"2) Use " + CreateVisualTool + " to change structure and " + RegenerateVisualTool + " to change content of existing visuals.",
	"3) Put audience, medium and constraints in context. Keep it to two short sentences.",
	"4) Write visual_query and visual_queries in English. Provide one query per visual.",
	"5) Omit style_id unless the user names a style; the server then picks one from the style named in content or context, else a formal default.",
	"   Style catalog: napkin-docs:///docs/visual_variations/style_keywords_by_category.md",
	"6) language is a BCP 47 tag such as en, en-US or ja-JP.",
	"",
	"[Rendering Options]",
	"- format: svg | png | ppt.",
	"- width / height: integers 100..10000, png only. Set at most one; the other is inferred.",
	"- transparent_background and inverted_color default to false.",
	"- orientation: auto | horizontal | vertical | square.",
	"",
	"[Constraints]",
	"- number_of_visuals: 1..4 (default 1).",
	"- visual_queries length must equal number_of_visuals.",
	"- Regenerate takes exactly one of visual_id or visual_ids; visual_ids length must equal number_of_visuals.",
	"- File URLs expire in about 30 minutes. Download with the Authorization header and host files yourself.",
}, "\n")
