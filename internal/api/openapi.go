package api

// openAPIDocument is a static, hand-written description of the HTTP
// surface (spec §4.10); it is not generated from the route table.
var openAPIDocument = map[string]any{
	"openapi": "3.0.3",
	"info": map[string]any{
		"title":   "audiogated",
		"version": "1.0.0",
	},
	"paths": map[string]any{
		"/{sig}/{audio_uri}": map[string]any{
			"get": map[string]any{
				"summary": "Process the referenced audio source and return the transformed artifact",
				"responses": map[string]any{
					"200": map[string]any{"description": "transformed audio bytes"},
					"401": map[string]any{"description": "signature missing or invalid"},
					"400": map[string]any{"description": "malformed request or parameters"},
					"404": map[string]any{"description": "source not found"},
					"413": map[string]any{"description": "source or output exceeds configured size limit"},
					"500": map[string]any{"description": "external tool failed"},
					"504": map[string]any{"description": "processing timed out"},
				},
			},
		},
		"/params/{sig}/{audio_uri}": map[string]any{
			"get": map[string]any{
				"summary": "Preview the parsed parameters for a signed request without processing",
			},
		},
		"/health": map[string]any{
			"get": map[string]any{"summary": "Report liveness and backend health"},
		},
		"/formats": map[string]any{
			"get": map[string]any{"summary": "List supported output formats"},
		},
	},
}
