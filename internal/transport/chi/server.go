package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/domain"
	dombatch "github.com/nexusplanner/nexusrag/internal/domain/batch"
	"github.com/nexusplanner/nexusrag/internal/domain/customer"
	"github.com/nexusplanner/nexusrag/internal/domain/search/filter"
	"github.com/nexusplanner/nexusrag/internal/domain/search/request"
	domusage "github.com/nexusplanner/nexusrag/internal/domain/usage"
	"github.com/nexusplanner/nexusrag/internal/metrics"
	documentuc "github.com/nexusplanner/nexusrag/internal/usecase/document"
	healthuc "github.com/nexusplanner/nexusrag/internal/usecase/health"
	planninguc "github.com/nexusplanner/nexusrag/internal/usecase/planning"
	relevanceuc "github.com/nexusplanner/nexusrag/internal/usecase/relevance"
	searchuc "github.com/nexusplanner/nexusrag/internal/usecase/search"
	usageuc "github.com/nexusplanner/nexusrag/internal/usecase/usage"
)

// maxBodyBytes caps request bodies; a full batch of max-size documents fits.
const maxBodyBytes = 8 << 20

// Retrieval limits applied to /rag/search.
type Limits struct {
	DefaultTopK int
	MaxTopK     int
}

// DefaultLimits matches the retrieval defaults.
func DefaultLimits() Limits {
	return Limits{DefaultTopK: request.DefaultTopK, MaxTopK: 100}
}

// Server serves the document store, retrieval, CRM and planning endpoints.
type Server struct {
	documents     *documentuc.Service
	search        *searchuc.Service
	relevance     *relevanceuc.Service
	planner       *planninguc.Planner
	health        *healthuc.Service
	usage         *usageuc.Service
	logger        *zap.Logger
	limits        Limits
	validate      *validator.Validate
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	documents *documentuc.Service,
	search *searchuc.Service,
	relevance *relevanceuc.Service,
	planner *planninguc.Planner,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &Server{
		documents:     documents,
		search:        search,
		relevance:     relevance,
		planner:       planner,
		health:        health,
		usage:         usageuc.New(nil, ""),
		logger:        logger,
		limits:        DefaultLimits(),
		validate:      v,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithLimits overrides the retrieval limits. Non-positive values keep the defaults.
func (s *Server) WithLimits(l Limits) *Server {
	if l.DefaultTopK > 0 {
		s.limits.DefaultTopK = l.DefaultTopK
	}
	if l.MaxTopK > 0 {
		s.limits.MaxTopK = l.MaxTopK
	}
	return s
}

// WithUsage sets the token usage reporter behind GET /usage.
func (s *Server) WithUsage(u *usageuc.Service) *Server {
	if u != nil {
		s.usage = u
	}
	return s
}

// Mount registers every route on r.
func (s *Server) Mount(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/usage", s.Usage)

	r.Route("/rag", func(r gochi.Router) {
		r.Get("/stats", s.StoreStats)
		r.Post("/search", s.Search)
		r.Delete("/documents", s.ClearDocuments)
		r.Post("/documents/batch", s.BatchPut)
		r.Put("/documents/{id}", s.PutDocument)
		r.Get("/documents/{id}", s.GetDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
	})

	r.Route("/crm", func(r gochi.Router) {
		r.Get("/stats", s.CRMStats)
		r.Post("/search", s.SearchCustomers)
		r.Post("/index", s.IndexCustomers)
		r.Post("/reindex/{customerID}", s.ReindexCustomer)
		r.Get("/customers", s.ListCustomers)
		r.Put("/customers/{customerID}", s.UpsertCustomer)
		r.Delete("/customers/{customerID}", s.RemoveCustomer)
	})

	r.Route("/agent", func(r gochi.Router) {
		r.Post("/plan", s.CreatePlan)
		r.Post("/evaluate", s.EvaluateOutcome)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
}

// PutDocument handles PUT /rag/documents/{id}.
func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "id")
	var req putDocumentRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := withUsage(r)
	res, err := s.documents.Put(ctx, id, req.Content, req.Metadata)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
		w.Header().Set("Location", "/rag/documents/"+id)
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, status, putDocumentResponse{ID: id, Created: res.Created, Degraded: res.Degraded})
}

// GetDocument handles GET /rag/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// DeleteDocument handles DELETE /rag/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearDocuments handles DELETE /rag/documents.
func (s *Server) ClearDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Clear(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchPut handles POST /rag/documents/batch.
func (s *Server) BatchPut(w http.ResponseWriter, r *http.Request) {
	var req batchPutRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Items) > documentuc.MaxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"items count must be at most "+strconv.Itoa(documentuc.MaxBatchSize))
		return
	}

	items := make([]documentuc.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = documentuc.Item{ID: it.ID, Content: it.Content, Metadata: it.Metadata}
	}

	ctx, usage := withUsage(r)
	results := s.documents.PutBatch(ctx, items)

	sum := dombatch.Summarize(results)
	resp := batchPutResponse{
		Items:     make([]batchResultItem, len(results)),
		Succeeded: sum.OK,
		Degraded:  sum.Degraded,
		Failed:    sum.Failed,
	}
	for i, res := range results {
		resp.Items[i] = batchResultToResponse(res)
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// StoreStats handles GET /rag/stats.
func (s *Server) StoreStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.documents.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	keys := st.MetadataKeys
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, storeStatsResponse{
		TotalDocuments: st.TotalDocuments,
		MetadataKeys:   keys,
		EmbeddingModel: st.EmbeddingModel,
		Dimensions:     st.Dimensions,
	})
}

// Search handles POST /rag/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}

	topK := s.limits.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK > s.limits.MaxTopK {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"top_k must be at most "+strconv.Itoa(s.limits.MaxTopK))
		return
	}

	filters, err := filter.FromMetadata(req.Filter)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	searchReq, err := request.New(req.Query, topK, filters)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := withUsage(r)
	res, err := s.search.Retrieve(ctx, &searchReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(res.Results))
	for i := range res.Results {
		items[i] = searchResultToResponse(&res.Results[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{Results: items, Degraded: res.Degraded})
}

// CRMStats handles GET /crm/stats.
func (s *Server) CRMStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.relevance.CRMStats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, crmStatsToResponse(&st))
}

// SearchCustomers handles POST /crm/search.
func (s *Server) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	var req campaignSearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := withUsage(r)
	res, err := s.relevance.SearchCustomersForCampaign(ctx, relevanceuc.CampaignQuery{
		Theme:          req.Theme,
		TargetAudience: req.TargetAudience,
		Segment:        customer.Segment(req.Segment),
		MinEngagement:  customer.Engagement(req.MinEngagement),
		TopK:           req.TopK,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	out := make([]customerMatch, len(res.Matches))
	for i := range res.Matches {
		out[i] = matchToResponse(&res.Matches[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, campaignSearchResponse{Customers: out, Degraded: res.Degraded})
}

// IndexCustomers handles POST /crm/index.
func (s *Server) IndexCustomers(w http.ResponseWriter, r *http.Request) {
	ctx, usage := withUsage(r)
	rep, err := s.relevance.Index(ctx)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, indexResponse{Indexed: rep.Indexed, Degraded: rep.Degraded, Failed: rep.Failed})
}

// ReindexCustomer handles POST /crm/reindex/{customerID}.
func (s *Server) ReindexCustomer(w http.ResponseWriter, r *http.Request) {
	ctx, usage := withUsage(r)
	res, err := s.relevance.Reindex(ctx, gochi.URLParam(r, "customerID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, reindexToResponse(&res))
}

// ListCustomers handles GET /crm/customers?segment=&min_ltv=&engaged=.
func (s *Server) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := relevanceuc.CustomerQuery{Segment: customer.Segment(q.Get("segment"))}
	if v := q.Get("min_ltv"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "min_ltv must be a number")
			return
		}
		query.MinLTV = f
	}
	if v := q.Get("engaged"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "engaged must be a boolean")
			return
		}
		query.EngagedOnly = b
	}

	cs, err := s.relevance.ListCustomers(r.Context(), query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	out := make([]customerResponse, len(cs))
	for i := range cs {
		out[i] = customerToResponse(&cs[i])
	}
	writeJSON(w, http.StatusOK, customerListResponse{Customers: out})
}

// UpsertCustomer handles PUT /crm/customers/{customerID}.
func (s *Server) UpsertCustomer(w http.ResponseWriter, r *http.Request) {
	var req upsertCustomerRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := withUsage(r)
	res, err := s.relevance.UpsertCustomer(ctx, req.toProfile(gochi.URLParam(r, "customerID")))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, reindexToResponse(&res))
}

// RemoveCustomer handles DELETE /crm/customers/{customerID}.
func (s *Server) RemoveCustomer(w http.ResponseWriter, r *http.Request) {
	res, err := s.relevance.RemoveCustomer(r.Context(), gochi.URLParam(r, "customerID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reindexToResponse(&res))
}

// CreatePlan handles POST /agent/plan.
func (s *Server) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := withUsage(r)
	p, err := s.planner.CreatePlan(ctx, planninguc.PlanRequest{
		Objective:      req.Objective,
		TargetAudience: req.TargetAudience,
		Budget:         req.Budget,
		Timeline:       req.Timeline,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, planToResponse(&p))
}

// EvaluateOutcome handles POST /agent/evaluate.
func (s *Server) EvaluateOutcome(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.planner.EvaluateOutcome(r.Context(), req.CampaignID, req.Metrics)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		CampaignID:  ev.CampaignID,
		EvaluatedAt: ev.EvaluatedAt.UTC(),
		Metrics:     ev.Metrics,
		Learnings:   ev.Learnings,
	})
}

// HealthCheck handles GET /health. A degraded service still answers 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: string(report.Status), Checks: checks})
}

// Usage handles GET /usage?period=day|month.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	report := s.usage.Report(r.Context(), period)
	writeJSON(w, http.StatusOK, usageToResponse(&report))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads a JSON body into dst and validates it. On failure it writes
// the error response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Code:    CodeValidationFailed,
				Message: "request validation failed",
				Fields:  validationFields(verrs),
			})
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// withUsage installs a per-request embedding usage accumulator.
func withUsage(r *http.Request) (context.Context, *domain.EmbeddingUsage) {
	usage := &domain.EmbeddingUsage{}
	return domain.NewContextWithUsage(r.Context(), usage), usage
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if !usage.Used() {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.Tokens()))
	if usage.Degraded() {
		w.Header().Set(metrics.DegradedHeader, "true")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return CodeVectorDimMismatch
	case errors.Is(err, domain.ErrInvalidRequest):
		return CodeValidationFailed
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return CodeEmbeddingQuotaExceeded
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return CodeEmbeddingProviderError
	case errors.Is(err, domain.ErrEmbeddingNotConfigured):
		return CodeEmbeddingNotConfigured
	default:
		return CodeInternalError
	}
}

// jsonFieldName reports validation failures under the JSON field name.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
