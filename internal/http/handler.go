package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/observability"
)

const (
	headerCache           = "X-Cache"
	headerProvidersFailed = "X-Providers-Failed"
)

// Handler handles HTTP requests.
type Handler struct {
	aggregator *domain.Aggregator
	registry   domain.ProviderRegistry
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(aggregator *domain.Aggregator, registry domain.ProviderRegistry) *Handler {
	return &Handler{
		aggregator: aggregator,
		registry:   registry,
	}
}

// HandlePrices returns every provider's prices for one instance type and region.
func (h *Handler) HandlePrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	result, err := h.aggregator.GetComputePrices(ctx, query)
	if err != nil {
		writeQueryError(ctx, w, err)
		return
	}

	setAggregationHeaders(w, result.FromCache, result.FailedProviders())
	writeJSON(ctx, w, http.StatusOK, result.Records)
}

// HandleCompare returns prices plus per-provider savings.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	result, err := h.aggregator.GetComputePrices(ctx, query)
	if err != nil {
		writeQueryError(ctx, w, err)
		return
	}

	setAggregationHeaders(w, result.FromCache, result.FailedProviders())
	writeJSON(ctx, w, http.StatusOK, domain.BuildComparison(query, result.Records))
}

// HandleRegions returns the union of every provider's regions.
func (h *Handler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.aggregator.GetRegions(ctx)
	if err != nil {
		observability.FromContext(ctx).Error("region lookup failed", observability.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	setAggregationHeaders(w, result.FromCache, result.FailedProviders())
	writeJSON(ctx, w, http.StatusOK, result.Entries)
}

// HandleInstanceTypes returns the union of every provider's instance types.
func (h *Handler) HandleInstanceTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.aggregator.GetInstanceTypes(ctx)
	if err != nil {
		observability.FromContext(ctx).Error("instance type lookup failed", observability.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	setAggregationHeaders(w, result.FromCache, result.FailedProviders())
	writeJSON(ctx, w, http.StatusOK, result.Entries)
}

// HandleCacheDelete drops one price entry when instance_type and region are
// given, otherwise clears the whole cache.
func (h *Handler) HandleCacheDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	if params.Has("instance_type") || params.Has("region") {
		query, ok := parseQuery(w, r)
		if !ok {
			return
		}
		deleted, err := h.aggregator.InvalidatePrices(ctx, query)
		if err != nil {
			writeQueryError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, map[string]any{"key": query.CacheKey(), "deleted": deleted})
		return
	}

	cleared := h.aggregator.ClearCache(ctx)
	status := http.StatusOK
	if !cleared {
		status = http.StatusServiceUnavailable
	}
	writeJSON(ctx, w, status, map[string]bool{"cleared": cleared})
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	providers, err := h.registry.List(ctx)
	if err != nil {
		providers = []string{}
	}

	writeJSON(ctx, w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"providers": providers,
	})
}

func parseQuery(w http.ResponseWriter, r *http.Request) (domain.PriceQuery, bool) {
	params := r.URL.Query()
	query, err := domain.NewPriceQuery(params.Get("instance_type"), params.Get("region"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, err.Error())
		return domain.PriceQuery{}, false
	}
	return query, true
}

func writeQueryError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidQuery) {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	observability.FromContext(ctx).Error("price lookup failed", observability.Error(err))
	writeError(ctx, w, http.StatusInternalServerError, err.Error())
}

// setAggregationHeaders reports cache use and partial failures.
func setAggregationHeaders(w http.ResponseWriter, fromCache bool, failed []string) {
	if fromCache {
		w.Header().Set(headerCache, "HIT")
	} else {
		w.Header().Set(headerCache, "MISS")
	}

	if len(failed) > 0 {
		w.Header().Set(headerProvidersFailed, strings.Join(failed, ","))
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, detail string) {
	writeJSON(ctx, w, status, map[string]string{"detail": detail})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	data, err := sonic.Marshal(body)
	if err != nil {
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		// Already written status, can't change it, just log.
		observability.FromContext(ctx).Debug("failed to write response", observability.Error(err))
	}
}
