package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBody(t *testing.T) {
	const url = "https://example.com/listChapterDataAjax"

	t.Run("rate-limit marker wins even with HTTP 200", func(t *testing.T) {
		resp := &Response{StatusCode: 200, Body: "<html>you are being rate limited, try later</html>"}

		err := ClassifyBody(url, resp, "rate limited", DefaultNotFoundMarker)

		rlErr, ok := IsRateLimited(err)
		require.True(t, ok)
		assert.Equal(t, url, rlErr.URL)
		assert.Equal(t, 200, rlErr.StatusCode)
	})

	t.Run("404 status maps to endpoint-not-found", func(t *testing.T) {
		resp := &Response{StatusCode: 404, Body: "nope"}

		err := ClassifyBody(url, resp, DefaultRateLimitMarker, "")

		_, ok := IsEndpointNotFound(err)
		assert.True(t, ok)
	})

	t.Run("not-found marker maps to endpoint-not-found despite HTTP 200", func(t *testing.T) {
		resp := &Response{StatusCode: 200, Body: "<h1>404 Not Found</h1>"}

		err := ClassifyBody(url, resp, DefaultRateLimitMarker, DefaultNotFoundMarker)

		_, ok := IsEndpointNotFound(err)
		assert.True(t, ok)
	})

	t.Run("clean body classifies as nil", func(t *testing.T) {
		resp := &Response{StatusCode: 200, Body: `{"data":[]}`}

		assert.NoError(t, ClassifyBody(url, resp, DefaultRateLimitMarker, DefaultNotFoundMarker))
	})

	t.Run("empty markers disable body matching", func(t *testing.T) {
		resp := &Response{StatusCode: 200, Body: "404 Not Found and rate limited"}

		assert.NoError(t, ClassifyBody(url, resp, "", ""))
	})
}

func TestDecompressBody(t *testing.T) {
	t.Run("plain body passes through", func(t *testing.T) {
		body, wasCompressed, err := decompressBody([]byte(`{"data":[]}`), "")

		require.NoError(t, err)
		assert.False(t, wasCompressed)
		assert.Equal(t, `{"data":[]}`, string(body))
	})

	t.Run("empty body passes through", func(t *testing.T) {
		body, wasCompressed, err := decompressBody(nil, "")

		require.NoError(t, err)
		assert.False(t, wasCompressed)
		assert.Empty(t, body)
	})
}
