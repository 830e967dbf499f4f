package nexusrag

import (
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	embedder Embedder

	openAIKey     string
	openAIModel   string
	openAIBaseURL string

	dimensions   int
	maxBatchSize int

	redisAddr     string
	redisPassword string

	seedFile   string
	seedReader io.Reader

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithEmbedder sets a custom embedding provider. It takes precedence over WithOpenAI.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAI embeds through the OpenAI embeddings API. An empty key leaves
// the client on fallback embeddings. dims of 0 keeps the model default.
func WithOpenAI(apiKey, model string, dims int) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIKey = apiKey
		if model != "" {
			c.openAIModel = model
		}
		if dims > 0 {
			c.dimensions = dims
		}
	})
}

// WithOpenAIBaseURL points the OpenAI provider at a compatible API.
func WithOpenAIBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIBaseURL = url
	})
}

// WithDimensions sets the vector length. Defaults to 1536 (text-embedding-3-small).
func WithDimensions(dims int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dims
	})
}

// WithMaxBatchSize sets the maximum number of documents per PutBatch.
// Default: 500.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithRedis caches provider embeddings in Redis or Valkey.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddr = addr
		c.redisPassword = password
	})
}

// WithCustomerFile loads CRM customers from a YAML file instead of the built-in sample set.
func WithCustomerFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.seedFile = path
	})
}

// WithCustomers loads CRM customers from YAML read from r.
func WithCustomers(r io.Reader) Option {
	return optionFunc(func(c *clientConfig) {
		c.seedReader = r
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
