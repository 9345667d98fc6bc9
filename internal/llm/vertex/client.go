package vertex

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/llm"
)

const DefaultModel = "gemini-1.5-flash"

type Config struct {
	ProjectID string
	Location  string // default us-central1
	Model     string // default gemini-1.5-flash
}

// GenerateFunc sends the user prompt to the configured model. Tests replace it.
type GenerateFunc func(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)

// Client implements llm.Enricher with a Gemini model on Vertex AI in JSON mode.
type Client struct {
	model    string
	generate GenerateFunc
	base     *genai.Client
	log      *slog.Logger
}

var _ llm.Enricher = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, common.NewAppError(common.CodeConfig, "vertex project is required", common.ErrInvalidInput)
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location)
	if err != nil {
		return nil, common.MissingDependency("vertex ai", "set GOOGLE_APPLICATION_CREDENTIALS or run gcloud auth application-default login", err)
	}

	model := base.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.SystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	c := NewClientWithGenerate(cfg.Model, func(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
		return model.GenerateContent(ctx, genai.Text(prompt))
	}, logger)
	c.base = base
	return c, nil
}

// NewClientWithGenerate builds a client around an existing generate func.
func NewClientWithGenerate(model string, generate GenerateFunc, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{model: model, generate: generate, log: logger}
}

func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func (c *Client) ExtractDetails(ctx context.Context, text string) (map[string]any, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()
	c.log.Info("llm.extract.start", "req_id", rid, "provider", "vertex", "model", c.model, "text_len", len(text))

	resp, err := c.generate(ctx, llm.BuildUserPrompt(text))
	if err != nil {
		c.log.Error("llm.extract.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.EnrichmentFailed("vertex generate content", err)
	}
	content, ok := responseText(resp)
	if !ok {
		c.log.Error("llm.extract.no_choices", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.EnrichmentFailed("no candidates in vertex response", nil)
	}

	out, err := llm.DecodeDetails(content, c.log)
	if err != nil {
		return nil, err
	}
	c.log.Info("llm.extract.ok", "req_id", rid, "fields", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
