package utils

import (
	"strings"

	"github.com/google/uuid"
)

const (
	draftKeyPrefix    = "template:"
	newDraftKeyPrefix = "template:new:"
)

// NewDraftKey returns a storage key and local draft id for a template that
// has no server id yet. Each wizard gets its own key so two tabs creating
// templates do not overwrite each other.
func NewDraftKey() (key string, draftID string) {
	draftID = uuid.NewString()
	return newDraftKeyPrefix + draftID, draftID
}

// DraftKeyForTemplate is the storage key of an edit session on an existing
// template.
func DraftKeyForTemplate(templateID string) string {
	return draftKeyPrefix + strings.TrimSpace(templateID)
}

// IsDraftKey reports whether key has the shape produced by this package.
func IsDraftKey(key string) bool {
	if strings.HasPrefix(key, newDraftKeyPrefix) {
		_, err := uuid.Parse(strings.TrimPrefix(key, newDraftKeyPrefix))
		return err == nil
	}
	return strings.HasPrefix(key, draftKeyPrefix) && len(key) > len(draftKeyPrefix)
}
