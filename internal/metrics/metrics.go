package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Метрики приложения. У коллектора свой реестр, поэтому в тестах можно создавать сколько угодно экземпляров.
// Методы безопасно вызывать у nil коллектора
type Collector struct {
	registry *prometheus.Registry

	articlesSaved     prometheus.Counter
	articlesRead      prometheus.Counter
	ingestFailures    *prometheus.CounterVec
	digestsBuilt      prometheus.Counter
	digestsDelivered  prometheus.Counter
	classifierResults *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		articlesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_saved_total",
			Help:      "Total number of newly saved articles",
		}),
		articlesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_read_total",
			Help:      "Total number of articles marked as read",
		}),
		ingestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_failures_total",
			Help:      "Total number of failed ingestions by reason",
		}, []string{"reason"}),
		digestsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_built_total",
			Help:      "Total number of digests built",
		}),
		digestsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_delivered_total",
			Help:      "Total number of digests posted to the channel",
		}),
		classifierResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Total number of classifications by classifier",
		}, []string{"classifier"}),
	}

	c.registry.MustRegister(
		c.articlesSaved,
		c.articlesRead,
		c.ingestFailures,
		c.digestsBuilt,
		c.digestsDelivered,
		c.classifierResults,
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{})
}

func (c *Collector) ArticleSaved() {
	if c == nil {
		return
	}
	c.articlesSaved.Inc()
}

func (c *Collector) ArticleRead() {
	if c == nil {
		return
	}
	c.articlesRead.Inc()
}

func (c *Collector) IngestFailed(reason string) {
	if c == nil {
		return
	}
	c.ingestFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) DigestBuilt() {
	if c == nil {
		return
	}
	c.digestsBuilt.Inc()
}

func (c *Collector) DigestDelivered() {
	if c == nil {
		return
	}
	c.digestsDelivered.Inc()
}

// classifier: openai, keyword или fallback
func (c *Collector) Classified(classifier string) {
	if c == nil {
		return
	}
	c.classifierResults.WithLabelValues(classifier).Inc()
}
