// Package azsearch talks to an Azure Cognitive Search service over its REST
// API: index lifecycle, batch document upload, and query.
package azsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docgenie/apps/indexer/internal/index"
)

type Client struct {
	serviceName string
	adminKey    string
	apiVersion  string
	client      *http.Client
	baseURL     string
}

func NewClient(serviceName, adminKey, apiVersion string) *Client {
	return &Client{
		serviceName: serviceName,
		adminKey:    adminKey,
		apiVersion:  apiVersion,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the service endpoint, used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

func (c *Client) url(path string) string {
	base := c.baseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.search.windows.net", c.serviceName)
	}
	return fmt.Sprintf("%s%s?api-version=%s", base, path, c.apiVersion)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.adminKey)

	return c.client.Do(req)
}

// EnsureIndex drops any existing index with the schema's name and creates it
// fresh. A missing index on delete is not an error.
func (c *Client) EnsureIndex(ctx context.Context, name string, schema index.Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	resp, err := c.do(ctx, "DELETE", "/indexes/"+name, nil)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete index %s: unexpected status %d", name, resp.StatusCode)
	}

	resp, err = c.do(ctx, "PUT", "/indexes/"+name, wireSchema(name, schema))
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("create index %s: unexpected status %d", name, resp.StatusCode)
	}
	return nil
}

// DeleteIndex removes an index. Deleting an index that does not exist is
// not an error.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	resp, err := c.do(ctx, "DELETE", "/indexes/"+name, nil)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete index %s: unexpected status %d", name, resp.StatusCode)
	}
	return nil
}

// ListIndexes returns the names of all indexes on the service.
func (c *Client) ListIndexes(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, "GET", "/indexes", nil)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("list indexes: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Value []struct {
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(result.Value))
	for _, v := range result.Value {
		names = append(names, v.Name)
	}
	return names, nil
}

// Upload sends documents to an index as a mergeOrUpload batch and returns
// how many were accepted. Any per-document rejection fails the call.
func (c *Client) Upload(ctx context.Context, indexName string, docs []index.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return 0, err
		}
	}

	actions := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		actions = append(actions, map[string]interface{}{
			"@search.action": "mergeOrUpload",
			"id":             d.ID,
			"doc_type":       d.DocType,
			"page_title":     d.PageTitle,
			"title":          d.Title,
			"content":        d.Content,
			"file_name":      d.FileName,
			"upload_date":    d.UploadDate,
		})
	}

	resp, err := c.do(ctx, "POST", "/indexes/"+indexName+"/docs/index", map[string]interface{}{"value": actions})
	if err != nil {
		return 0, fmt.Errorf("upload to %s: %w", indexName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 && resp.StatusCode != http.StatusMultiStatus {
		return 0, fmt.Errorf("upload to %s: unexpected status %d", indexName, resp.StatusCode)
	}

	var result struct {
		Value []struct {
			Key          string `json:"key"`
			Status       bool   `json:"status"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}

	accepted := 0
	for _, v := range result.Value {
		if !v.Status {
			return accepted, fmt.Errorf("upload to %s: document %s rejected: %s", indexName, v.Key, v.ErrorMessage)
		}
		accepted++
	}
	return accepted, nil
}

// Hit is one search result with its content highlights.
type Hit struct {
	Score      float64
	Highlights []string
	Document   index.Document
}

// Search runs a full-text query against one index.
func (c *Client) Search(ctx context.Context, indexName, query string, top int) ([]Hit, error) {
	body := map[string]interface{}{
		"search":    query,
		"top":       top,
		"highlight": "content",
	}

	resp, err := c.do(ctx, "POST", "/indexes/"+indexName+"/docs/search", body)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", indexName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("search %s: unexpected status %d", indexName, resp.StatusCode)
	}

	var result struct {
		Value []struct {
			index.Document
			Score      float64             `json:"@search.score"`
			Highlights map[string][]string `json:"@search.highlights"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(result.Value))
	for _, v := range result.Value {
		hits = append(hits, Hit{
			Score:      v.Score,
			Highlights: v.Highlights["content"],
			Document:   v.Document,
		})
	}
	return hits, nil
}

// wireSchema translates the logical schema into the service's index
// definition payload.
func wireSchema(name string, s index.Schema) map[string]interface{} {
	fields := make([]map[string]interface{}, 0, len(s.Fields))
	for _, f := range s.Fields {
		fields = append(fields, map[string]interface{}{
			"name":        f.Name,
			"type":        f.Type,
			"key":         f.Key,
			"searchable":  f.Searchable,
			"filterable":  f.Filterable,
			"retrievable": f.Retrievable,
			"sortable":    f.Sortable,
			"facetable":   f.Facetable,
		})
	}

	return map[string]interface{}{
		"name":   name,
		"fields": fields,
		"semantic": map[string]interface{}{
			"configurations": []map[string]interface{}{
				{
					"name": index.SemanticConfigName,
					"prioritizedFields": map[string]interface{}{
						"titleField": map[string]string{"fieldName": s.SemanticTitleField},
						"prioritizedContentFields": []map[string]string{
							{"fieldName": "content"},
						},
						"prioritizedKeywordsFields": []map[string]string{},
					},
				},
			},
		},
	}
}
