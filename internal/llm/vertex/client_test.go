package vertex

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintake/internal/common"
)

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestExtractDetails(t *testing.T) {
	var prompt string
	c := NewClientWithGenerate("gemini-test", func(_ context.Context, p string) (*genai.GenerateContentResponse, error) {
		prompt = p
		return textResponse(`{"tipo_documento": "CNH",`, ` "numero_nf": "12"}`), nil
	}, nil)

	out, err := c.ExtractDetails(context.Background(), "CARTEIRA NACIONAL DE HABILITAÇÃO")
	require.NoError(t, err)
	assert.Equal(t, "CNH", out["tipo_documento"])
	assert.Equal(t, "12", out["numero_nf"])
	assert.Contains(t, prompt, "CARTEIRA NACIONAL DE HABILITAÇÃO")
	assert.NoError(t, c.Close())
}

func TestExtractDetails_Failures(t *testing.T) {
	tests := map[string]GenerateFunc{
		"call error": func(context.Context, string) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("unavailable")
		},
		"no candidates": func(context.Context, string) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		},
		"not json": func(context.Context, string) (*genai.GenerateContentResponse, error) {
			return textResponse("desculpe"), nil
		},
	}
	for name, gen := range tests {
		t.Run(name, func(t *testing.T) {
			c := NewClientWithGenerate("gemini-test", gen, nil)
			_, err := c.ExtractDetails(context.Background(), "texto")
			assert.ErrorIs(t, err, common.ErrEnrichmentFailed)
		})
	}
}
