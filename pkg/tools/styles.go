package tools

import "strings"

// Style is a built-in Napkin visual style
type Style struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StyleCategory groups related styles. Preferred names the style picked when
// the category is chosen without a specific style.
type StyleCategory struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Preferred string  `json:"preferred"`
	Styles    []Style `json:"styles"`
}

// DefaultStyleCategory is used when a request carries no style hint.
const DefaultStyleCategory = "formal"

// StyleCatalog lists the built-in styles in lookup order.
var StyleCatalog = []StyleCategory{
	{
		Key:       "colorful",
		Label:     "Colorful Styles",
		Preferred: "Radiant Blocks",
		Styles: []Style{
			{"CDQPRVVJCSTPRBBCD5Q6AWR", "Vibrant Strokes", "A flow of vivid lines for bold notes."},
			{"CDQPRVVJCSTPRBBKDXK78", "Glowful Breeze", "A swirl of cheerful color for laid-back planning."},
			{"CDQPRVVJCSTPRBB6DHGQ8", "Bold Canvas", "A vivid field of shapes for lively notes."},
			{"CDQPRVVJCSTPRBB6D5P6RSB4", "Radiant Blocks", "A bright spread of solid color for tasks."},
			{"CDQPRVVJCSTPRBB7E9GP8TB5DST0", "Pragmatic Shades", "A palette of blended hues for bold ideas."},
		},
	},
	{
		Key:       "casual",
		Label:     "Casual Styles",
		Preferred: "Lively Layers",
		Styles: []Style{
			{"CDGQ6XB1DGPQ6VV6EG", "Carefree Mist", "A wisp of calm tones for playful tasks."},
			{"CDGQ6XB1DGPPCTBCDHJP8", "Lively Layers", "A breeze of soft color for bright ideas."},
		},
	},
	{
		Key:       "hand_drawn",
		Label:     "Hand-drawn Styles",
		Preferred: "Sketch Notes",
		Styles: []Style{
			{"D1GPWS1DCDQPRVVJCSTPR", "Artistic Flair", "A splash of hand-drawn color for creative thinking."},
			{"D1GPWS1DDHMPWSBK", "Sketch Notes", "A hand-drawn style for free-flowing ideas."},
		},
	},
	{
		Key:       "formal",
		Label:     "Formal Styles",
		Preferred: "Subtle Accent",
		Styles: []Style{
			{"CSQQ4VB1DGPP4V31CDNJTVKFBXK6JV3C", "Elegant Outline", "A refined black outline for professional clarity."},
			{"CSQQ4VB1DGPPRTB7D1T0", "Subtle Accent", "A light touch of color for professional documents."},
			{"CSQQ4VB1DGPQ6TBECXP6ABB3DXP6YWG", "Monochrome Pro", "A single-color approach for focused presentations."},
			{"CSQQ4VB1DGPPTVVEDXHPGWKFDNJJTSKCC5T0", "Corporate Clean", "A professional flat style for business diagrams."},
		},
	},
	{
		Key:       "monochrome",
		Label:     "Monochrome Styles",
		Preferred: "Minimal Contrast",
		Styles: []Style{
			{"DNQPWVV3D1S6YVB55NK6RRBM", "Minimal Contrast", "A clean monochrome style for focused work."},
			{"CXS62Y9DCSQP6XBK", "Silver Beam", "A spotlight of gray scale ease with striking focus."},
		},
	},
}

// PreferredStyle returns the preferred style of a category, or its first
// style when the preferred name is not listed.
func PreferredStyle(category string) (Style, bool) {
	for _, c := range StyleCatalog {
		if c.Key != category || len(c.Styles) == 0 {
			continue
		}
		for _, s := range c.Styles {
			if s.Name == c.Preferred {
				return s, true
			}
		}
		return c.Styles[0], true
	}
	return Style{}, false
}

// SelectStyle picks a style id for a request that names none. A catalog id
// mentioned in any of texts wins, then a catalog style name (case
// insensitive), then the preferred style of DefaultStyleCategory.
func SelectStyle(texts ...string) string {
	text := strings.ToLower(strings.Join(texts, "\n"))

	if s, ok := findStyle(text, func(s Style) string { return s.ID }); ok {
		return s.ID
	}
	if s, ok := findStyle(text, func(s Style) string { return s.Name }); ok {
		return s.ID
	}

	s, _ := PreferredStyle(DefaultStyleCategory)
	return s.ID
}

// findStyle returns the catalog style whose key occurs in text. The longest
// match wins so that an id is never shadowed by a shorter id it contains.
func findStyle(text string, key func(Style) string) (Style, bool) {
	var (
		best  Style
		found bool
	)
	for _, c := range StyleCatalog {
		for _, s := range c.Styles {
			k := strings.ToLower(key(s))
			if k == "" || !strings.Contains(text, k) {
				continue
			}
			if !found || len(k) > len(key(best)) {
				best, found = s, true
			}
		}
	}
	return best, found
}

// styleFor returns the style id to send with req: the caller's, then the
// configured default, then a catalog pick from content and context.
func (t *Toolset) styleFor(req *VisualRequest) (id, source string) {
	if req.StyleID != "" {
		return req.StyleID, "request"
	}
	if id := strings.TrimSpace(t.opts.DefaultStyleID); id != "" {
		return id, "default"
	}
	texts := []string{req.Content}
	if req.Context != nil {
		texts = append(texts, *req.Context)
	}
	return SelectStyle(texts...), "catalog"
}
