// Package knowledge looks up short snippets in the managed search index
// that back the interviewer's answers.
package knowledge

import (
	"context"
	"strings"
	"time"

	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/observability"

	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const noSnippetStatus = "NO_SNIPPET_AVAILABLE"

// SearchBackend executes one search request and returns at most
// req.PageSize results.
type SearchBackend interface {
	Search(ctx context.Context, req *discoveryenginepb.SearchRequest) ([]*discoveryenginepb.SearchResponse_SearchResult, error)
}

// Retriever turns a free-text query into a block of snippets. It never
// fails: any problem yields an empty string.
type Retriever struct {
	backend       SearchBackend
	servingConfig string
	pageSize      int32
	separator     string
	timeout       time.Duration
	obs           *observability.ObservabilityManager
	logger        *errors.Logger
}

// NewRetriever creates a retriever. A nil backend makes every lookup empty.
func NewRetriever(backend SearchBackend, cfg config.KnowledgeConfig, projectID string, obs *observability.ObservabilityManager, logger *errors.Logger) *Retriever {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 3
	}
	separator := cfg.Separator
	if separator == "" {
		separator = "\n---\n"
	}

	return &Retriever{
		backend:       backend,
		servingConfig: ServingConfigPath(projectID, cfg.Location, cfg.DataStoreID, cfg.ServingConfig),
		pageSize:      pageSize,
		separator:     separator,
		timeout:       cfg.Timeout,
		obs:           obs,
		logger:        logger.With("component", "knowledge"),
	}
}

// ServingConfigPath builds the resource name of a data store serving config
func ServingConfigPath(projectID, location, dataStoreID, servingConfig string) string {
	return "projects/" + projectID +
		"/locations/" + location +
		"/collections/default_collection/dataStores/" + dataStoreID +
		"/servingConfigs/" + servingConfig
}

// Retrieve returns up to pageSize snippets joined by the separator
func (r *Retriever) Retrieve(ctx context.Context, query string) string {
	ctx, span := otel.Tracer("airecruiter.knowledge").Start(ctx, "knowledge.retrieve")
	defer span.End()
	span.SetAttributes(attribute.Int("query.length", len(query)))

	if r.backend == nil || strings.TrimSpace(query) == "" {
		return ""
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	results, err := r.backend.Search(ctx, r.searchRequest(query))
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("Knowledge base search failed", "error", err.Error())
		r.recordMiss(ctx)
		return ""
	}

	var snippets []string
	for _, result := range results {
		if snippet := snippetOf(result); snippet != "" {
			snippets = append(snippets, snippet)
		}
	}
	span.SetAttributes(attribute.Int("results", len(results)), attribute.Int("snippets", len(snippets)))

	if len(snippets) == 0 {
		r.recordMiss(ctx)
		return ""
	}
	return strings.Join(snippets, r.separator)
}

func (r *Retriever) searchRequest(query string) *discoveryenginepb.SearchRequest {
	return &discoveryenginepb.SearchRequest{
		ServingConfig: r.servingConfig,
		Query:         query,
		PageSize:      r.pageSize,
		ContentSearchSpec: &discoveryenginepb.SearchRequest_ContentSearchSpec{
			SnippetSpec: &discoveryenginepb.SearchRequest_ContentSearchSpec_SnippetSpec{
				ReturnSnippet: true,
			},
		},
	}
}

func (r *Retriever) recordMiss(ctx context.Context) {
	r.obs.GetMetrics().RecordBusinessMetric(ctx, observability.MetricKnowledgeMiss, false, r.obs)
}

// snippetOf reads derived_struct_data.snippets[0].snippet, tolerating any
// missing level.
func snippetOf(result *discoveryenginepb.SearchResponse_SearchResult) string {
	snippets := result.GetDocument().GetDerivedStructData().GetFields()["snippets"].GetListValue().GetValues()
	if len(snippets) == 0 {
		return ""
	}

	fields := snippets[0].GetStructValue().GetFields()
	if fields["snippet_status"].GetStringValue() == noSnippetStatus {
		return ""
	}
	return strings.TrimSpace(fields["snippet"].GetStringValue())
}
