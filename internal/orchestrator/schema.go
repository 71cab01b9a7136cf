package orchestrator

import "github.com/abhisek/aptiq/internal/llm"

var guidanceSchema = &llm.Schema{
	Name:        "career-guidance",
	Description: "Guidance answer for a student's career question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{
				"type":        "string",
				"description": "Direct answer to the question, 2-5 sentences",
			},
			"suggestions": map[string]any{
				"type":        "array",
				"description": "Concrete next steps",
				"items":       map[string]any{"type": "string"},
			},
		},
		"required":             []any{"answer", "suggestions"},
		"additionalProperties": false,
	},
}

var streamSchema = &llm.Schema{
	Name:        "stream-recommendation",
	Description: "Academic stream recommendation derived from trait scores",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stream": map[string]any{
				"type":        "string",
				"description": "Recommended academic stream",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Why the stream fits the scores",
			},
			"careers": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"subjects": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"stream", "reasoning", "careers", "subjects"},
		"additionalProperties": false,
	},
}

var translateSchema = &llm.Schema{
	Name:        "translation",
	Description: "Translated text",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"translated_text": map[string]any{"type": "string"},
		},
		"required":             []any{"translated_text"},
		"additionalProperties": false,
	},
}
