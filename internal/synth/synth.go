// Package synth wraps the external image-generation API. Zero reference
// images means pure text-to-image; one or two references use the edit
// endpoint with a list of reference URLs.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Fixed generation parameters, applied uniformly to every call.
const (
	inferenceSteps  = 40
	guidanceScale   = 3.5
	imagesPerCall   = 1
	safetyTolerance = "2"
)

const (
	generateEndpoint = "/fal-ai/flux-2-pro"
	editEndpoint     = "/fal-ai/flux-2-pro/edit"
)

// policyMarker is the substring the provider puts in error bodies when a
// prompt trips its safety filter. The provider contract is string-based;
// there is no structured code, so this check stays a plain substring match
// isolated here for easy update if the provider changes its format.
const policyMarker = "content_policy_violation"

// ErrContentPolicy is returned when the provider rejects a prompt on safety
// grounds. Callers surface it with remediation guidance rather than a
// generic failure.
var ErrContentPolicy = errors.New("content policy violation")

// RequestError is any other non-success response from the provider,
// including a success response that carries no image.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("synthesis request failed (status %d): %s", e.StatusCode, e.Body)
}

type request struct {
	Prompt          string   `json:"prompt"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	InferenceSteps  int      `json:"num_inference_steps"`
	GuidanceScale   float64  `json:"guidance_scale"`
	NumImages       int      `json:"num_images"`
	SafetyTolerance string   `json:"safety_tolerance"`
}

type response struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Client calls the image-synthesis provider. The HTTP client is injected at
// construction (long generation times need its own generous timeout) and
// reused across requests.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log,
	}
}

// Synthesize produces one image for the prompt, conditioned on zero, one or
// two reference image URLs, and returns the produced image's URL.
func (c *Client) Synthesize(ctx context.Context, prompt string, refs []string) (string, error) {
	endpoint := c.baseURL + generateEndpoint
	if len(refs) > 0 {
		endpoint = c.baseURL + editEndpoint
	}

	payload := request{
		Prompt:          prompt,
		ImageURLs:       refs,
		InferenceSteps:  inferenceSteps,
		GuidanceScale:   guidanceScale,
		NumImages:       imagesPerCall,
		SafetyTolerance: safetyTolerance,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating synthesis request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errText, _ := io.ReadAll(resp.Body)
		if isPolicyViolation(string(errText)) {
			c.log.Warn("content policy violation",
				zap.String("endpoint", endpoint),
				zap.Int("refs", len(refs)))
			return "", ErrContentPolicy
		}
		c.log.Error("synthesis provider error",
			zap.Int("status", resp.StatusCode),
			zap.String("endpoint", endpoint),
			zap.String("error", string(errText)))
		return "", &RequestError{StatusCode: resp.StatusCode, Body: string(errText)}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding synthesis response: %w", err)
	}
	if len(out.Images) == 0 {
		c.log.Error("synthesis response had no image", zap.String("endpoint", endpoint))
		return "", &RequestError{StatusCode: resp.StatusCode, Body: "no image in response"}
	}
	return out.Images[0].URL, nil
}

func isPolicyViolation(body string) bool {
	return strings.Contains(strings.ToLower(body), policyMarker)
}
