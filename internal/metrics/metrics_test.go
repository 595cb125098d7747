package metrics

import (
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("rlb")

	c.ArticleSaved()
	c.ArticleSaved()
	c.ArticleRead()
	c.IngestFailed("not_html")
	c.Classified("fallback")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.articlesSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.articlesRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ingestFailures.WithLabelValues("not_html")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.classifierResults.WithLabelValues("fallback")))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	first := NewCollector("rlb")
	second := NewCollector("rlb")

	first.DigestBuilt()

	assert.Equal(t, 1.0, testutil.ToFloat64(first.digestsBuilt))
	assert.Zero(t, testutil.ToFloat64(second.digestsBuilt))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ArticleSaved()
		c.ArticleRead()
		c.IngestFailed("fetch")
		c.DigestBuilt()
		c.DigestDelivered()
		c.Classified("keyword")
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("rlb")
	c.DigestDelivered()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "rlb_digests_delivered_total 1"))
}
