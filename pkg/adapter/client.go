package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ai-askdata-be/internal/pkg/logger"
)

// Client talks to the external AI query-generation service. The service is an
// opaque collaborator reachable only through submit / poll / cancel / stream.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.ILogger
}

func NewClient(baseURL string, log logger.ILogger) *Client {
	return &Client{
		baseURL: baseURL,
		// No client-wide timeout: answer streams stay open for minutes.
		// Individual JSON calls bound themselves via request contexts.
		http:   &http.Client{},
		logger: log,
	}
}

// RemoteError is a non-2xx reply from the service.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ai service returned %d: %s", e.StatusCode, e.Body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RemoteError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SubmitAsk submits a question and returns the remote task id.
func (c *Client) SubmitAsk(ctx context.Context, req *SubmitAskRequest) (string, error) {
	var out struct {
		QueryId string `json:"queryId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/asks", req, &out); err != nil {
		return "", err
	}
	return out.QueryId, nil
}

// GetAskResult fetches the current snapshot of an asking task.
func (c *Client) GetAskResult(ctx context.Context, queryId string) (*AskingTask, error) {
	var out AskingTask
	if err := c.doJSON(ctx, http.MethodGet, "/v1/asks/"+url.PathEscape(queryId)+"/result", nil, &out); err != nil {
		return nil, err
	}
	out.QueryId = queryId
	return &out, nil
}

// CancelAsk asks the service to stop producing for queryId. Best effort: the
// caller abandons its subscription regardless of the outcome.
func (c *Client) CancelAsk(ctx context.Context, queryId string) error {
	return c.doJSON(ctx, http.MethodPut, "/v1/asks/"+url.PathEscape(queryId)+"/cancel", nil, nil)
}

// SubmitRecommendedQuestions starts instant follow-up question generation.
func (c *Client) SubmitRecommendedQuestions(ctx context.Context, req *SubmitRecommendedQuestionsRequest) (string, error) {
	var out struct {
		Id string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/recommended-questions", req, &out); err != nil {
		return "", err
	}
	return out.Id, nil
}

// GetRecommendedQuestionsResult fetches the follow-up generation snapshot.
func (c *Client) GetRecommendedQuestionsResult(ctx context.Context, id string) (*RecommendedQuestionsTask, error) {
	var out RecommendedQuestionsTask
	if err := c.doJSON(ctx, http.MethodGet, "/v1/recommended-questions/"+url.PathEscape(id)+"/result", nil, &out); err != nil {
		return nil, err
	}
	out.Id = id
	return &out, nil
}

// AdjustSQL replaces a response's SQL directly. The updated response comes
// back synchronously; no task is created.
func (c *Client) AdjustSQL(ctx context.Context, req *AdjustSQLRequest) (*AdjustedResponse, error) {
	var out AdjustedResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/adjustments/sql", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdjustReasoning submits revised reasoning input and returns the new task id
// to poll.
func (c *Client) AdjustReasoning(ctx context.Context, req *AdjustReasoningRequest) (string, error) {
	var out struct {
		QueryId string `json:"queryId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/adjustments/reasoning", req, &out); err != nil {
		return "", err
	}
	return out.QueryId, nil
}

// ReRunResponse re-submits a response for regeneration. Progress is reported
// by the response resource itself, not a detached task.
func (c *Client) ReRunResponse(ctx context.Context, responseId string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/responses/"+url.PathEscape(responseId)+"/rerun", nil, nil)
}

// GetResponseProgress fetches regeneration progress for a response.
func (c *Client) GetResponseProgress(ctx context.Context, responseId string) (*ResponseProgress, error) {
	var out ResponseProgress
	if err := c.doJSON(ctx, http.MethodGet, "/v1/responses/"+url.PathEscape(responseId), nil, &out); err != nil {
		return nil, err
	}
	out.ResponseId = responseId
	return &out, nil
}

// RunSQL executes SQL against the deployed model.
func (c *Client) RunSQL(ctx context.Context, sql string, limit int) (*RunSQLResult, error) {
	var out RunSQLResult
	body := map[string]interface{}{"sql": sql, "limit": limit}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sql/run", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateVegaSpec produces a chart spec for a question/SQL pair.
func (c *Client) GenerateVegaSpec(ctx context.Context, question, sql string, sampleSize int) (*VegaSpecResult, error) {
	var out VegaSpecResult
	body := map[string]interface{}{"question": question, "sql": sql, "sampleSize": sampleSize}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/charts", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateSummary produces a natural-language summary for a question/SQL pair.
func (c *Client) GenerateSummary(ctx context.Context, question, sql string) (*SummaryResult, error) {
	var out SummaryResult
	body := map[string]interface{}{"question": question, "sql": sql}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/summaries", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenAnswerStream opens the SSE answer stream for a query id. The returned
// body delivers `data: {"message": ...}` frames terminated by a done frame.
func (c *Client) OpenAnswerStream(ctx context.Context, queryId string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/asks/"+url.PathEscape(queryId)+"/streaming", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp.Body, nil
}

// OpenStream implements streaming.Opener with the query-id answer stream.
func (c *Client) OpenStream(ctx context.Context, id string) (io.ReadCloser, error) {
	return c.OpenAnswerStream(ctx, id)
}
