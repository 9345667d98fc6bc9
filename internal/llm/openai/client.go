package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/llm"
)

var _ llm.Enricher = (*Client)(nil)

// ExtractDetails implements llm.Enricher using chat/completions in JSON mode.
func (c *Client) ExtractDetails(ctx context.Context, text string) (map[string]any, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
	)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, common.EnrichmentFailed("rate limiter", err)
		}
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.SystemPrompt},
			{"role": "user", "content": llm.BuildUserPrompt(text)},
		},
	}

	raw, err := llm.PostJSON(ctx, c.http, llm.JSONRequest{
		URL:     strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions",
		Body:    body,
		Headers: map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
	}, c.log)
	if err != nil {
		var se *llm.StatusError
		if errors.As(err, &se) {
			c.log.Error("llm.extract.http_error",
				"req_id", rid, "status", se.Status,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, common.EnrichmentFailed(fmt.Sprintf("openai status %d: %s", se.Status, snippet(se.Body)), err)
		}
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.EnrichmentFailed("openai request failed", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.EnrichmentFailed("decode openai response", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid, "raw", snippet(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.EnrichmentFailed("no choices in openai response", nil)
	}

	out, err := llm.DecodeDetails(cc.Choices[0].Message.Content, c.log)
	if err != nil {
		return nil, err
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"fields", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}
