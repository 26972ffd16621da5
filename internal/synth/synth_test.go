package synth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", srv.Client(), zap.NewNop())
}

func TestSynthesizeTextToImage(t *testing.T) {
	var gotPath string
	var gotBody request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "Key test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"images": []map[string]string{{"url": "https://img/out.png"}},
		})
	})

	url, err := c.Synthesize(context.Background(), "a prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://img/out.png", url)
	assert.Equal(t, generateEndpoint, gotPath)
	assert.Empty(t, gotBody.ImageURLs)
	assert.Equal(t, 40, gotBody.InferenceSteps)
	assert.Equal(t, 3.5, gotBody.GuidanceScale)
	assert.Equal(t, 1, gotBody.NumImages)
	assert.Equal(t, "2", gotBody.SafetyTolerance)
}

func TestSynthesizeUsesEditEndpointForReferences(t *testing.T) {
	var gotPath string
	var gotBody request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"images": []map[string]string{{"url": "https://img/out.png"}},
		})
	})

	// One and two references both use the edit endpoint; only the list
	// length differs.
	_, err := c.Synthesize(context.Background(), "p", []string{"https://img/a.png"})
	require.NoError(t, err)
	assert.Equal(t, editEndpoint, gotPath)
	assert.Len(t, gotBody.ImageURLs, 1)

	_, err = c.Synthesize(context.Background(), "p", []string{"https://img/a.png", "https://img/b.png"})
	require.NoError(t, err)
	assert.Equal(t, editEndpoint, gotPath)
	assert.Len(t, gotBody.ImageURLs, 2)
}

func TestSynthesizeClassifiesContentPolicy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		// Marker buried in an otherwise generic-looking error body.
		w.Write([]byte(`{"detail":"Internal error: CONTENT_POLICY_VIOLATION detected for prompt"}`))
	})

	_, err := c.Synthesize(context.Background(), "p", nil)
	assert.ErrorIs(t, err, ErrContentPolicy)
}

func TestSynthesizeGenericFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"something broke"}`))
	})

	_, err := c.Synthesize(context.Background(), "p", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.NotErrorIs(t, err, ErrContentPolicy)
}

func TestSynthesizeMissingImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"images": []any{}})
	})

	_, err := c.Synthesize(context.Background(), "p", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Body, "no image")
}
