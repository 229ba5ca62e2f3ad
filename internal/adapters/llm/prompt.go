package llm

import (
	"github.com/PabloGalante/minidxo/internal/domain"
	"google.golang.org/genai"
)

// BuildContents turns the transcript window and the tool steps of the
// current turn into Gemini contents. Each step becomes a model function
// call followed by the user-side function response.
func BuildContents(req domain.CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Messages)+2*len(req.Steps))

	for _, m := range req.Messages {
		var role genai.Role
		switch m.Author {
		case domain.RoleAssistant:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	for _, step := range req.Steps {
		call := genai.NewPartFromFunctionCall(step.Call.Name, step.Call.Args)
		call.FunctionCall.ID = step.Call.ID
		contents = append(contents, genai.NewContentFromParts([]*genai.Part{call}, genai.RoleModel))

		resp := genai.NewPartFromFunctionResponse(step.Call.Name, map[string]any{"output": step.Result})
		resp.FunctionResponse.ID = step.Call.ID
		contents = append(contents, genai.NewContentFromParts([]*genai.Part{resp}, genai.RoleUser))
	}

	return contents
}

// BuildTools declares every descriptor as a function taking string params.
func BuildTools(descs []domain.ToolDescriptor) []*genai.Tool {
	if len(descs) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(descs))
	for _, d := range descs {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(d.Params)),
		}
		for _, p := range d.Params {
			schema.Properties[p.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: p.Description,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schema,
		})
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}
}
