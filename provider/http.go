package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"render-orchestrator/dto"
)

// HTTPProvider drives a renderer over its HTTP job API. The same wire contract
// serves both the video and the print renderer; only the base URL and the
// advertised formats differ.
type HTTPProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	formats    []string
}

func NewVideoProvider(baseURL, apiKey string) *HTTPProvider {
	return newHTTPProvider(baseURL, apiKey, []string{"MP4", "WEBM", "MOV"})
}

func NewPrintProvider(baseURL, apiKey string) *HTTPProvider {
	return newHTTPProvider(baseURL, apiKey, []string{"PDF", "PNG", "TIFF"})
}

func newHTTPProvider(baseURL, apiKey string, formats []string) *HTTPProvider {
	return &HTTPProvider{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		formats: formats,
	}
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

func (p *HTTPProvider) SubmitJob(ctx context.Context, req SubmitRequest) (string, error) {
	var resp submitResponse
	if err := p.post(ctx, "/v1/jobs", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("renderer returned empty job id")
	}
	return resp.JobID, nil
}

func (p *HTTPProvider) GetJobStatus(ctx context.Context, jobID string) (*Result, error) {
	var result Result
	if err := p.get(ctx, fmt.Sprintf("/v1/jobs/%s", jobID), &result); err != nil {
		return nil, err
	}
	if result.Status == "" {
		result.Status = StatusPending
	}
	return &result, nil
}

func (p *HTTPProvider) CancelJob(ctx context.Context, jobID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+fmt.Sprintf("/v1/jobs/%s", jobID), nil)
	if err != nil {
		return false, err
	}
	p.setHeaders(req)

	res, err := p.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return true, nil
	case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusConflict:
		// already finished or unknown
		return false, nil
	default:
		return false, fmt.Errorf("renderer http %d", res.StatusCode)
	}
}

func (p *HTTPProvider) SupportedFormats() []string {
	out := make([]string, len(p.formats))
	copy(out, p.formats)
	return out
}

func (p *HTTPProvider) EstimateRenderTime(opts dto.RenderOptions) time.Duration {
	base := 30 * time.Second
	switch opts.Quality {
	case "4K", "ULTRA":
		base *= 4
	case "FHD":
		base *= 2
	}
	if opts.Pages > 1 {
		base += time.Duration(opts.Pages) * 2 * time.Second
	}
	return base
}

func (p *HTTPProvider) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	p.setHeaders(req)

	return p.do(req, out)
}

func (p *HTTPProvider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	p.setHeaders(req)

	return p.do(req, out)
}

func (p *HTTPProvider) do(req *http.Request, out any) error {
	res, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("renderer http %d: %s", res.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (p *HTTPProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}
