package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// maxResponseBytes bounds how much of a provider response is buffered.
const maxResponseBytes = 4 << 20

// JSONRequest is one provider-agnostic POST of a JSON payload.
type JSONRequest struct {
	URL     string
	Body    any
	Headers map[string]string
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.Status)
}

// PostJSON sends req and returns the raw response body. A non-2xx reply
// returns the body alongside a *StatusError.
func PostJSON(ctx context.Context, client *http.Client, req JSONRequest, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	ctx, reqID := common.EnsureRequestID(ctx)
	start := time.Now()

	payload, err := json.Marshal(req.Body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("encode json: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(payload))
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	logger.Debug("llm.http.request", "req_id", reqID, "url", req.URL, "content_length", len(payload))

	resp, err := client.Do(httpReq)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", cerr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, &StatusError{Status: resp.StatusCode, Body: raw}
	}
	return raw, nil
}
