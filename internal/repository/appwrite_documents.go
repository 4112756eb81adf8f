package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AppwriteCredentials addresses one Appwrite database. Exactly one of APIKey (server) or JWT
// (signed-in user) is expected.
type AppwriteCredentials struct {
	Endpoint   string
	ProjectID  string
	DatabaseID string
	APIKey     string
	JWT        string
}

// AppwriteError is a non-2xx response the store could not map onto a sentinel.
type AppwriteError struct {
	Status  int
	Type    string
	Message string
}

func (e *AppwriteError) Error() string {
	return fmt.Sprintf("appwrite %d %s: %s", e.Status, e.Type, e.Message)
}

// AppwriteDocuments implements Documents against the Appwrite Databases REST API.
type AppwriteDocuments struct {
	creds      AppwriteCredentials
	httpClient *http.Client
}

// NewAppwriteDocuments creates a REST-backed document store. A nil client gets a 10s timeout.
func NewAppwriteDocuments(creds AppwriteCredentials, httpClient *http.Client) *AppwriteDocuments {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	creds.Endpoint = strings.TrimRight(creds.Endpoint, "/")
	return &AppwriteDocuments{creds: creds, httpClient: httpClient}
}

func (a *AppwriteDocuments) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw map[string]any
	if err := a.do(ctx, http.MethodGet, a.documentPath(collection, id), nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, err)
	}
	return fromAppwrite(collection, raw), nil
}

func (a *AppwriteDocuments) Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	body := map[string]any{"data": data}
	var raw map[string]any
	if err := a.do(ctx, http.MethodPatch, a.documentPath(collection, id), nil, body, &raw); err != nil {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, err)
	}
	return fromAppwrite(collection, raw), nil
}

func (a *AppwriteDocuments) Create(ctx context.Context, collection, id string, data map[string]any, permissions []string) (*Document, error) {
	body := map[string]any{
		"documentId": id,
		"data":       data,
	}
	if len(permissions) > 0 {
		body["permissions"] = permissions
	}
	var raw map[string]any
	if err := a.do(ctx, http.MethodPost, a.collectionPath(collection), nil, body, &raw); err != nil {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, err)
	}
	return fromAppwrite(collection, raw), nil
}

func (a *AppwriteDocuments) ListByField(ctx context.Context, collection, field, value string) ([]*Document, error) {
	equal, err := json.Marshal(map[string]any{
		"method":    "equal",
		"attribute": field,
		"values":    []string{value},
	})
	if err != nil {
		return nil, err
	}
	order, err := json.Marshal(map[string]any{
		"method":    "orderDesc",
		"attribute": "$createdAt",
	})
	if err != nil {
		return nil, err
	}
	query := url.Values{"queries[]": {string(equal), string(order)}}

	var list struct {
		Total     int              `json:"total"`
		Documents []map[string]any `json:"documents"`
	}
	if err := a.do(ctx, http.MethodGet, a.collectionPath(collection), query, nil, &list); err != nil {
		return nil, fmt.Errorf("%s where %s: %w", collection, field, err)
	}

	docs := make([]*Document, len(list.Documents))
	for i, raw := range list.Documents {
		docs[i] = fromAppwrite(collection, raw)
	}
	return docs, nil
}

func (a *AppwriteDocuments) collectionPath(collection string) string {
	return fmt.Sprintf("/databases/%s/collections/%s/documents",
		url.PathEscape(a.creds.DatabaseID), url.PathEscape(collection))
}

func (a *AppwriteDocuments) documentPath(collection, id string) string {
	return a.collectionPath(collection) + "/" + url.PathEscape(id)
}

func (a *AppwriteDocuments) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := a.creds.Endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Appwrite-Project", a.creds.ProjectID)
	if a.creds.APIKey != "" {
		req.Header.Set("X-Appwrite-Key", a.creds.APIKey)
	} else if a.creds.JWT != "" {
		req.Header.Set("X-Appwrite-JWT", a.creds.JWT)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrDocumentNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrDocumentExists
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := &AppwriteError{Status: resp.StatusCode}
		var parsed struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if json.Unmarshal(respBody, &parsed) == nil {
			apiErr.Message = parsed.Message
			apiErr.Type = parsed.Type
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func fromAppwrite(collection string, raw map[string]any) *Document {
	doc := &Document{
		Collection: collection,
		Data:       make(map[string]any, len(raw)),
	}
	for k, v := range raw {
		if !strings.HasPrefix(k, "$") {
			doc.Data[k] = v
		}
	}
	if id, ok := raw["$id"].(string); ok {
		doc.ID = id
	}
	if perms, ok := raw["$permissions"].([]any); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				doc.Permissions = append(doc.Permissions, s)
			}
		}
	}
	doc.CreatedAt = parseAppwriteTime(raw["$createdAt"])
	doc.UpdatedAt = parseAppwriteTime(raw["$updatedAt"])
	return doc
}

func parseAppwriteTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
