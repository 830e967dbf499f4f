package nexusrag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/db"
	dbRedis "github.com/nexusplanner/nexusrag/internal/db/redis"
	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/domain/customer"
	"github.com/nexusplanner/nexusrag/internal/metrics"
	"github.com/nexusplanner/nexusrag/internal/repository/crm"
	docrepo "github.com/nexusplanner/nexusrag/internal/repository/document"
	"github.com/nexusplanner/nexusrag/internal/repository/embcache"
	openaiEmb "github.com/nexusplanner/nexusrag/internal/transport/openai"
	documentuc "github.com/nexusplanner/nexusrag/internal/usecase/document"
	embeddinguc "github.com/nexusplanner/nexusrag/internal/usecase/embedding"
	healthuc "github.com/nexusplanner/nexusrag/internal/usecase/health"
	planninguc "github.com/nexusplanner/nexusrag/internal/usecase/planning"
	relevanceuc "github.com/nexusplanner/nexusrag/internal/usecase/relevance"
	searchuc "github.com/nexusplanner/nexusrag/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the nexusrag SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	fallback  *embeddinguc.FallbackEmbedder
	docSvc    *documentuc.Service
	searchSvc *searchuc.Service
	relevance *relevanceuc.Service
	planner   *planninguc.Planner
	healthSvc *healthuc.Service
	obs       *observer
}

// New creates a Client. The context bounds the Redis readiness check when WithRedis is used.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions:  domain.DefaultVectorConfig().Dimensions,
		openAIModel: domain.DefaultVectorConfig().Model,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.dimensions <= 0 {
		return nil, fmt.Errorf("nexusrag: dimensions must be positive, got %d", cfg.dimensions)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	customers, err := loadCustomers(cfg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if cfg.redisAddr != "" {
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: []string{cfg.redisAddr}, Password: cfg.redisPassword})
		if err != nil {
			return nil, fmt.Errorf("nexusrag: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("nexusrag: database not ready: %w", err)
		}
		store = s
	}

	primary, err := buildPrimary(cfg, store)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return wireClient(cfg, store, primary, customers, obs), nil
}

func loadCustomers(cfg *clientConfig) ([]customer.Customer, error) {
	now := time.Now()
	if cfg.seedReader != nil {
		cs, err := crm.Load(cfg.seedReader, now)
		if err != nil {
			return nil, fmt.Errorf("nexusrag: load customers: %w", err)
		}
		return cs, nil
	}
	cs, err := crm.LoadFile(cfg.seedFile, now)
	if err != nil {
		return nil, fmt.Errorf("nexusrag: load customers: %w", err)
	}
	return cs, nil
}

// buildPrimary returns nil when no provider is configured.
func buildPrimary(cfg *clientConfig, store db.Store) (domain.Embedder, error) {
	if cfg.embedder != nil {
		return external{cfg.embedder}, nil
	}
	if cfg.openAIKey == "" {
		return nil, nil
	}

	base, err := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.openAIKey,
		BaseURL:    cfg.openAIBaseURL,
		Model:      cfg.openAIModel,
		Dimensions: cfg.dimensions,
		Provider:   "openai",
		Logger:     zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("nexusrag: openai embedder: %w", err)
	}
	if store == nil {
		return base, nil
	}
	return embcache.New(base, store, metrics.EmbeddingCacheTotal, zap.NewNop(),
		embcache.WithModel(fmt.Sprintf("%s:%d", cfg.openAIModel, cfg.dimensions)),
	), nil
}

func wireClient(
	cfg *clientConfig,
	store db.Store,
	primary domain.Embedder,
	customers []customer.Customer,
	obs *observer,
) *Client {
	log := zap.NewNop()
	fallback := embeddinguc.NewFallbackEmbedder(primary, embeddinguc.NewHashEmbedder(cfg.dimensions), log)

	repo := docrepo.New(cfg.dimensions)
	docSvc := documentuc.New(repo, fallback, cfg.openAIModel, cfg.dimensions)
	if cfg.maxBatchSize > 0 {
		docSvc = docSvc.WithMaxBatchSize(cfg.maxBatchSize)
	}
	searchSvc := searchuc.New(repo, fallback)
	rel := relevanceuc.New(crm.New(customers), docSvc, searchSvc, log)

	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}

	return &Client{
		store:     store,
		fallback:  fallback,
		docSvc:    docSvc,
		searchSvc: searchSvc,
		relevance: rel,
		planner:   planninguc.New(rel, log),
		healthSvc: healthuc.New(pinger, fallback, nil),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// ProviderConfigured reports whether a real embedding provider is wired.
// Without one every embedding is a degraded fallback vector.
func (c *Client) ProviderConfigured() bool { return c.fallback.Configured() }

// Documents returns the document store service.
func (c *Client) Documents() *DocumentService {
	return &DocumentService{svc: c.docSvc, obs: c.obs}
}

// Customers returns the CRM relevance service.
func (c *Client) Customers() *CustomerService {
	return &CustomerService{svc: c.relevance, obs: c.obs}
}
