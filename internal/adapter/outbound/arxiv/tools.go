package arxiv

import (
	"context"

	"github.com/i2y/papermcp/internal/domain"
)

// defaultPaperCount is used when a caller omits number_of_papers.
const defaultPaperCount = 3

// Definitions returns the arXiv tool definitions backed by this client:
// fetch_arxiv_papers and get_arxiv_abstract.
func (c *Client) Definitions() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Tool: domain.Tool{
				Name:        "fetch_arxiv_papers",
				Description: "Retrieves the latest papers from arXiv matching a given topic.",
				InputSchema: domain.JSONSchemaProps{
					Type: "object",
					Properties: map[string]domain.JSONSchemaProps{
						"topic": {
							Type:        "string",
							Description: `The search topic or keyword (e.g. "mcp", "machine learning").`,
						},
						"number_of_papers": {
							Type:        "integer",
							Description: "The number of latest papers to retrieve. Defaults to 3.",
							Default:     float64(defaultPaperCount),
							Minimum:     f64(1),
						},
					},
					Required: []string{"topic"},
				},
				OutputSchema: &domain.JSONSchemaProps{
					Type:  "array",
					Items: paperSchema(),
				},
			},
			Handler: c.fetchPapers,
		},
		{
			Tool: domain.Tool{
				Name:        "get_arxiv_abstract",
				Description: "Fetches and returns the abstract of a specific arXiv paper.",
				InputSchema: domain.JSONSchemaProps{
					Type: "object",
					Properties: map[string]domain.JSONSchemaProps{
						"arxiv_id": {
							Type:        "string",
							Description: `The arXiv ID of the paper (e.g. "2301.12345").`,
						},
					},
					Required: []string{"arxiv_id"},
				},
				OutputSchema: &domain.JSONSchemaProps{
					Type:        "string",
					Description: "The abstract text of the paper.",
				},
			},
			Handler: c.getAbstract,
		},
	}
}

func (c *Client) fetchPapers(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	topic, _ := args["topic"].(string)
	if topic == "" {
		return nil, domain.ValidationError("topic must not be empty")
	}
	count := intArg(args, "number_of_papers", defaultPaperCount)

	papers, err := c.Search(ctx, topic, count)
	if err != nil {
		return nil, err
	}
	return papers, nil
}

func (c *Client) getAbstract(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	arxivID, _ := args["arxiv_id"].(string)
	if arxivID == "" {
		return nil, domain.ValidationError("arxiv_id must not be empty")
	}
	return c.Abstract(ctx, arxivID)
}

func paperSchema() *domain.JSONSchemaProps {
	return &domain.JSONSchemaProps{
		Type: "object",
		Properties: map[string]domain.JSONSchemaProps{
			"arxiv_id":  {Type: "string"},
			"title":     {Type: "string"},
			"published": {Type: "string"},
			"authors":   {Type: "array", Items: &domain.JSONSchemaProps{Type: "string"}},
			"pdf_link":  {Type: "string"},
			"summary":   {Type: "string"},
		},
	}
}

func f64(v float64) *float64 {
	return &v
}

// intArg reads an integer argument. JSON numbers arrive as float64, so both
// representations are accepted.
func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return fallback
}
