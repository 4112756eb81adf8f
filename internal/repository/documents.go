package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Errors every Documents backend maps its native failures onto.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")
)

// Document is one record in a collection of the document store.
type Document struct {
	ID          string
	Collection  string
	Data        map[string]any
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Documents is the document store contract the checkout core depends on.
type Documents interface {
	// Get returns the document or ErrDocumentNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Update patches the document: keys in data overwrite, other keys are kept.
	// Returns ErrDocumentNotFound when the id does not exist.
	Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error)

	// Create stores a new document under a caller-chosen id.
	// Returns ErrDocumentExists when the id is taken.
	Create(ctx context.Context, collection, id string, data map[string]any, permissions []string) (*Document, error)

	// ListByField returns documents whose attribute field equals value.
	ListByField(ctx context.Context, collection, field, value string) ([]*Document, error)
}

// ReadPermission grants read on a document to one user.
func ReadPermission(userID string) string {
	return fmt.Sprintf(`read("user:%s")`, userID)
}

// UpdatePermission grants update on a document to one user.
func UpdatePermission(userID string) string {
	return fmt.Sprintf(`update("user:%s")`, userID)
}

// OwnerPermissions is the grant attached to every record created for a user.
func OwnerPermissions(userID string) []string {
	if userID == "" {
		return nil
	}
	return []string{ReadPermission(userID), UpdatePermission(userID)}
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
