package agent

import (
	"fmt"
	"strings"

	"github.com/i2y/papermcp/internal/domain"
)

// BuildSystemPrompt renders the default system prompt for a tool session,
// listing every tool in the server's catalog so the model knows what it can
// call and how results come back.
func BuildSystemPrompt(catalog domain.Catalog) string {
	var b strings.Builder
	b.WriteString("You are a research assistant that helps users explore arXiv papers and save notes as markdown reports.\n")
	b.WriteString("Use the available tools to answer questions; do not invent paper metadata.\n")
	b.WriteString(`Tool results arrive as JSON envelopes: {"ok":true,"result":...} on success and {"ok":false,"error":{"kind":...,"message":...}} on failure. When a call fails, explain the problem to the user or adjust the arguments and retry.` + "\n")
	if len(catalog) > 0 {
		b.WriteString("\nAvailable tools:\n")
		for _, t := range catalog {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		}
	}
	return b.String()
}
