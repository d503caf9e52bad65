package tools

import (
	"encoding/json"
)

type schema = map[string]interface{}

var (
	createInputSchema     = mustSchema(objectSchema(visualProperties(), "format", "content"))
	regenerateInputSchema = mustSchema(objectSchema(regenerateProperties(), "format", "content"))
	visualOutputSchema    = mustSchema(objectSchema(jobProperties("statusUrl"), "id", "status"))
	statusInputSchema     = mustSchema(objectSchema(schema{
		"requestId": schema{"type": "string", "format": "uuid", "description": "Visual request id returned by the create or regenerate tool"},
	}, "requestId"))
	statusOutputSchema  = mustSchema(objectSchema(jobProperties("_hint"), "id", "status"))
	downloadInputSchema = mustSchema(objectSchema(schema{
		"downloadUrl":       schema{"type": "string", "format": "uri", "description": "File URL from generated_files"},
		"requestId":         schema{"type": "string", "format": "uuid"},
		"fileId":            schema{"type": "string", "minLength": 1},
		"downloadDirectory": schema{"type": "string", "description": "Directory to save the file in; defaults to the server working directory"},
	}))
	downloadOutputSchema = mustSchema(objectSchema(schema{
		"advisory": schema{"type": "string", "minLength": 1},
		"headersRequired": objectSchema(schema{
			"Authorization": schema{"type": "string", "pattern": "^Bearer "},
		}, "Authorization"),
		"suggestedFilename": schema{"type": "string"},
		"downloadPath":      schema{"type": "string"},
	}, "advisory", "headersRequired"))
)

func objectSchema(properties schema, required ...string) schema {
	s := schema{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func visualProperties() schema {
	dimension := func() schema {
		return schema{"type": []string{"integer", "null"}, "minimum": MinDimension, "maximum": MaxDimension, "description": "PNG only"}
	}
	return schema{
		"format":                 schema{"type": "string", "enum": Formats},
		"content":                schema{"type": "string", "minLength": 1},
		"context":                schema{"type": []string{"string", "null"}},
		"language":               schema{"type": "string", "minLength": 1, "description": "BCP 47 language tag"},
		"style_id":               schema{"type": "string", "minLength": 1},
		"visual_query":           schema{"type": "string"},
		"visual_queries":         schema{"type": "array", "items": schema{"type": "string", "minLength": 1}, "minItems": 1},
		"number_of_visuals":      schema{"type": "integer", "minimum": MinVisuals, "maximum": MaxVisuals, "default": 1},
		"transparent_background": schema{"type": "boolean", "default": false},
		"inverted_color":         schema{"type": "boolean", "default": false},
		"width":                  dimension(),
		"height":                 dimension(),
		"orientation":            schema{"type": "string", "enum": Orientations},
	}
}

func regenerateProperties() schema {
	props := visualProperties()
	props["visual_id"] = schema{"type": "string"}
	props["visual_ids"] = schema{"type": "array", "items": schema{"type": "string", "minLength": 1}, "minItems": 1}
	return props
}

func jobProperties(extra string) schema {
	props := schema{
		"id":      schema{"type": "string", "format": "uuid"},
		"status":  schema{"type": "string", "enum": jobStates},
		"request": schema{"type": "object"},
		"generated_files": schema{
			"type": "array",
			"items": objectSchema(schema{
				"url":          schema{"type": "string", "format": "uri"},
				"visual_id":    schema{"type": "string"},
				"visual_query": schema{"type": "string"},
				"style_id":     schema{"type": "string"},
				"width":        schema{"type": "integer"},
				"height":       schema{"type": "integer"},
			}, "url"),
		},
	}
	props[extra] = schema{"type": "string"}
	return props
}

func mustSchema(s schema) json.RawMessage {
	data, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return data
}
