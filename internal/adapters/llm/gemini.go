package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/minidxo/internal/domain"
	"google.golang.org/genai"
)

// GeminiOptions selects the Vertex AI project and model.
type GeminiOptions struct {
	ProjectID string
	Location  string
	Model     string
}

type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates an LLMClient based on Vertex AI (Gemini).
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if opts.ProjectID == "" || opts.Location == "" {
		return nil, errors.New("gemini: project and location must be set")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash-lite"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  opts.ProjectID,
		Location: opts.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: opts.Model,
	}, nil
}

// Client exposes the underlying genai client so the embedder can share it.
func (g *GeminiClient) Client() *genai.Client {
	return g.client
}

// Complete implements domain.LLMClient using Vertex AI.
func (g *GeminiClient) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
		Tools:           BuildTools(req.Tools),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, BuildContents(req), cfg)
	if err != nil {
		return nil, fmt.Errorf("vertex generate content: %w", err)
	}

	return toCompletion(res), nil
}

// toCompletion maps a Vertex response. A blank response yields an empty
// completion so the caller can classify it as an empty reply.
func toCompletion(res *genai.GenerateContentResponse) *domain.Completion {
	out := &domain.Completion{}
	if res == nil {
		return out
	}
	out.Content = res.Text()
	for _, fc := range res.FunctionCalls() {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:   fc.ID,
			Name: fc.Name,
			Args: fc.Args,
		})
	}
	return out
}
