package report

import (
	"context"

	"github.com/i2y/papermcp/internal/domain"
)

// Definitions returns the save_md_to_file tool definition backed by this
// writer.
func (w *Writer) Definitions() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Tool: domain.Tool{
				Name:        "save_md_to_file",
				Description: "Saves the given Markdown-formatted text to a .md file in the reports folder.",
				InputSchema: domain.JSONSchemaProps{
					Type: "object",
					Properties: map[string]domain.JSONSchemaProps{
						"text": {
							Type:        "string",
							Description: "The Markdown-formatted text to save.",
						},
						"filename": {
							Type:        "string",
							Description: `The desired name of the file (e.g. "Model Context Protocols in Adaptive Transport Systems"). Special characters are replaced with hyphens and ".md" is appended if not present.`,
						},
					},
					Required: []string{"text", "filename"},
				},
				OutputSchema: &domain.JSONSchemaProps{
					Type:        "string",
					Description: "The path of the saved file.",
				},
			},
			Handler: w.saveMarkdown,
		},
	}
}

func (w *Writer) saveMarkdown(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	text, _ := args["text"].(string)
	filename, _ := args["filename"].(string)
	return w.Save(ctx, text, filename)
}
