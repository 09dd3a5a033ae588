package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/gitreadapp/GitRead/internal/pkg/githubapi"
	"github.com/gitreadapp/GitRead/internal/pkg/ingest"
)

// ErrEmptyReadme means the model answered with nothing usable. Callers must
// treat this as a failed generation: no result, no debit.
var ErrEmptyReadme = errors.New("generation produced an empty readme")

// Result is a finished generation with token accounting for the response.
type Result struct {
	Readme       string
	InputTokens  int
	OutputTokens int
}

// ReadmeGenerator produces a README for a repository URL.
type ReadmeGenerator interface {
	Generate(ctx context.Context, repoURL string) (*Result, error)
}

// Generator wires the GitHub client, the ingest service and the LLM gateway
// into the single generation pipeline.
type Generator struct {
	github *githubapi.Client
	ingest *ingest.Client
	llm    *LLMClient
}

func New(github *githubapi.Client, ingestClient *ingest.Client, llm *LLMClient) *Generator {
	return &Generator{github: github, ingest: ingestClient, llm: llm}
}

func NewFromEnv() *Generator {
	return New(githubapi.NewClientFromEnv(), ingest.NewClientFromEnv(), NewLLMClientFromEnv())
}

// Generate validates the URL, flattens the repository, enriches the prompt
// with GitHub metadata (best effort) and asks the model for a README.
func (g *Generator) Generate(ctx context.Context, repoURL string) (*Result, error) {
	owner, repo, err := githubapi.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	ingested, err := g.ingest.Ingest(ctx, repoURL)
	if err != nil {
		return nil, err
	}

	// Metadata only enriches the prompt; a metadata failure must not kill a
	// generation the user is paying a credit for.
	info, err := g.github.GetRepository(ctx, owner, repo)
	if err != nil {
		log.Warnf("github metadata lookup failed for %s/%s: %v", owner, repo, err)
		info = nil
	}
	var contents []githubapi.ContentEntry
	if info != nil {
		if contents, err = g.github.ListContents(ctx, owner, repo); err != nil {
			log.Warnf("github contents lookup failed for %s/%s: %v", owner, repo, err)
			contents = nil
		}
	}

	prompt := BuildPrompt(info, contents, ingested)
	completion, err := g.llm.CreateChatCompletion(ctx, []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("readme generation failed: %w", err)
	}

	readme := strings.TrimSpace(completion.Content)
	if readme == "" {
		return nil, ErrEmptyReadme
	}

	inputTokens := completion.PromptTokens
	if inputTokens == 0 {
		inputTokens = ingested.EstimatedTokens
	}
	outputTokens := completion.CompletionTokens
	if outputTokens == 0 {
		outputTokens = len(strings.Fields(readme))
	}

	return &Result{
		Readme:       readme,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}
