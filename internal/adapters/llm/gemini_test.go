package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestToCompletion_BlankResponseIsEmptyCompletion(t *testing.T) {
	for name, res := range map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"empty parts": {Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: string(genai.RoleModel)},
		}}},
	} {
		t.Run(name, func(t *testing.T) {
			out := toCompletion(res)
			if out == nil {
				t.Fatal("expected a completion, got nil")
			}
			if out.Content != "" || len(out.ToolCalls) != 0 {
				t.Errorf("expected empty completion, got %+v", out)
			}
		})
	}
}

func TestToCompletion_TextAndFunctionCalls(t *testing.T) {
	res := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{
			{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "web_search", Args: map[string]any{"query": "rash"}}},
		}},
	}}}

	out := toCompletion(res)
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "web_search" || out.ToolCalls[0].Args["query"] != "rash" {
		t.Errorf("unexpected tool calls %+v", out.ToolCalls)
	}

	res = &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromText("Here is my thought process: rest.", genai.RoleModel),
	}}}
	if out := toCompletion(res); out.Content != "Here is my thought process: rest." {
		t.Errorf("unexpected content %q", out.Content)
	}
}
