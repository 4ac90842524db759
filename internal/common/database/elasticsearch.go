package database

import (
	"context"
	"fmt"
	"strings"

	"team-notifier/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// runIndexMapping maps the run summary documents written by the run auditor.
const runIndexMapping = `{
  "mappings": {
    "properties": {
      "runId":         {"type": "keyword"},
      "teamId":        {"type": "long"},
      "teamName":      {"type": "keyword"},
      "outcome":       {"type": "keyword"},
      "channel":       {"type": "keyword"},
      "notifications": {"type": "integer"},
      "sent":          {"type": "integer"},
      "failed":        {"type": "integer"},
      "startedAt":     {"type": "date"},
      "finishedAt":    {"type": "date"}
    }
  }
}`

// ElasticsearchClient wraps the Elasticsearch client
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// NewElasticsearch creates a new Elasticsearch client
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es}, nil
}

// Ping tests the Elasticsearch connection
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// EnsureRunIndex creates the run summary index unless it already exists.
func (c *ElasticsearchClient) EnsureRunIndex(ctx context.Context, index string) error {
	res, err := c.Client.Indices.Exists([]string{index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = c.Client.Indices.Create(index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(runIndexMapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	defer res.Body.Close()

	// a concurrent creator wins the race with resource_already_exists_exception
	if res.IsError() && res.StatusCode != 400 {
		return fmt.Errorf("elasticsearch create index error: %s", res.Status())
	}
	return nil
}
