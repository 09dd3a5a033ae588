package generator

import (
	"fmt"
	"strings"

	"github.com/gitreadapp/GitRead/internal/pkg/githubapi"
	"github.com/gitreadapp/GitRead/internal/pkg/ingest"
)

const systemPrompt = "You are an expert technical writer."

// BuildPrompt assembles the user prompt from repository metadata and the
// flattened repository content. The model is told to answer with the README
// alone so the response can be returned verbatim.
func BuildPrompt(info *githubapi.RepoInfo, contents []githubapi.ContentEntry, ingested *ingest.Result) string {
	var b strings.Builder

	b.WriteString("Make a README for the following GitHub repository. ")
	b.WriteString("Directly output the README file without any additional text.\n\n")

	if info != nil {
		fmt.Fprintf(&b, "Repository: %s\n", info.FullName)
		description := strings.TrimSpace(info.Description)
		if description == "" {
			description = "No description provided"
		}
		fmt.Fprintf(&b, "Description: %s\n", description)
		language := strings.TrimSpace(info.Language)
		if language == "" {
			language = "Not specified"
		}
		fmt.Fprintf(&b, "Language: %s\n", language)
	}
	if len(contents) > 0 {
		names := make([]string, 0, len(contents))
		for _, entry := range contents {
			names = append(names, entry.Name)
		}
		fmt.Fprintf(&b, "Top-level contents: %s\n", strings.Join(names, ", "))
	}

	b.WriteString("\nGitHub repository is here:\n")
	fmt.Fprintf(&b, "Summary: %s\n\n", ingested.Summary)
	fmt.Fprintf(&b, "Tree:\n%s\n\n", ingested.Tree)
	fmt.Fprintf(&b, "Content:\n%s", ingested.Content)

	return b.String()
}
