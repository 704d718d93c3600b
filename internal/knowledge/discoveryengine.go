package knowledge

import (
	"context"
	"fmt"

	"airecruiter/internal/config"
	"airecruiter/internal/gcp"

	discoveryengine "cloud.google.com/go/discoveryengine/apiv1"
	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DiscoveryEngineBackend searches a Vertex AI Search data store
type DiscoveryEngineBackend struct {
	client *discoveryengine.SearchClient
}

// NewDiscoveryEngineBackend dials the regional search endpoint
func NewDiscoveryEngineBackend(ctx context.Context, cfg config.KnowledgeConfig, gcpConfig config.GCPConfig) (*DiscoveryEngineBackend, error) {
	var extra []option.ClientOption
	if cfg.Location != "" && cfg.Location != "global" {
		extra = append(extra, option.WithEndpoint(cfg.Location+"-discoveryengine.googleapis.com:443"))
	}

	opts, err := gcp.ClientOptions(ctx, gcpConfig, extra...)
	if err != nil {
		return nil, err
	}

	client, err := discoveryengine.NewSearchClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	return &DiscoveryEngineBackend{client: client}, nil
}

// Search reads the first page only
func (b *DiscoveryEngineBackend) Search(ctx context.Context, req *discoveryenginepb.SearchRequest) ([]*discoveryenginepb.SearchResponse_SearchResult, error) {
	it := b.client.Search(ctx, req)

	var results []*discoveryenginepb.SearchResponse_SearchResult
	for int32(len(results)) < req.GetPageSize() {
		result, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Close releases the gRPC connection
func (b *DiscoveryEngineBackend) Close() error {
	return b.client.Close()
}
