package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/pkg/logger"
)

const VideosIndex = "videos"

// VideoDocument is the catalog row as stored in Meilisearch.
type VideoDocument struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Year         string   `json:"year,omitempty"`
	Area         string   `json:"area,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Synopsis     string   `json:"synopsis,omitempty"`
	SourceNames  []string `json:"source_names,omitempty"`
	IsValid      bool     `json:"is_valid"`
	QualityScore int      `json:"quality_score"`
	IndexedAt    string   `json:"indexed_at"`
}

type Client struct {
	client meilisearch.ServiceManager
}

func New(url, apiKey string) (*Client, error) {
	client := meilisearch.New(url, meilisearch.WithAPIKey(apiKey))

	if _, err := client.Health(); err != nil {
		return nil, err
	}

	c := &Client{client: client}
	if err := c.setupIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) setupIndex() error {
	log := logger.Log

	_, err := c.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        VideosIndex,
		PrimaryKey: "id",
	})
	if err != nil {
		log.Debug().Str("index", VideosIndex).Msg("index already exists")
	} else {
		log.Info().Str("index", VideosIndex).Msg("index created")
	}

	index := c.client.Index(VideosIndex)

	currentSettings, err := index.GetSettings()
	if err != nil {
		log.Warn().Err(err).Msg("failed to get current settings, will update all")
		currentSettings = &meilisearch.Settings{}
	}

	searchable := []string{"title", "synopsis", "tags", "area"}
	if !stringSlicesEqual(currentSettings.SearchableAttributes, searchable) {
		if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
			log.Warn().Err(err).Msg("failed to update searchable attributes")
		} else {
			log.Info().Strs("attrs", searchable).Msg("searchable attributes updated")
		}
	}

	filterable := []string{"is_valid", "year", "source_names"}
	if !stringSlicesEqual(currentSettings.FilterableAttributes, filterable) {
		filterableIface := make([]interface{}, len(filterable))
		for i, v := range filterable {
			filterableIface[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterableIface); err != nil {
			log.Warn().Err(err).Msg("failed to update filterable attributes")
		} else {
			log.Info().Strs("attrs", filterable).Msg("filterable attributes updated")
		}
	}

	sortable := []string{"quality_score"}
	if !stringSlicesEqual(currentSettings.SortableAttributes, sortable) {
		if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
			log.Warn().Err(err).Msg("failed to update sortable attributes")
		} else {
			log.Info().Strs("attrs", sortable).Msg("sortable attributes updated")
		}
	}

	log.Info().Str("index", VideosIndex).Msg("meilisearch index configured")
	return nil
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IndexVideo upserts one canonical row into the search index. Called after
// every merge and every validator write.
func (c *Client) IndexVideo(ctx context.Context, v *repo.Video) error {
	doc := VideoDocument{
		ID:           v.ID.Hex(),
		Title:        v.Title,
		Year:         v.Year,
		Area:         v.Area,
		Tags:         v.Tags,
		Synopsis:     v.Synopsis,
		SourceNames:  v.SourceNames,
		IsValid:      v.IsValid,
		QualityScore: v.QualityScore,
		IndexedAt:    time.Now().Format(time.RFC3339),
	}

	_, err := c.client.Index(VideosIndex).AddDocuments([]VideoDocument{doc}, nil)
	return err
}

// Search runs a keyword query over the catalog. Invalid rows are excluded
// unless includeInvalid is set.
func (c *Client) Search(ctx context.Context, query string, limit int64, includeInvalid bool) ([]VideoDocument, error) {
	req := &meilisearch.SearchRequest{
		Limit: limit,
		Sort:  []string{"quality_score:desc"},
	}
	if !includeInvalid {
		req.Filter = "is_valid = true"
	}

	resp, err := c.client.Index(VideosIndex).Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	docs := make([]VideoDocument, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var doc VideoDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
