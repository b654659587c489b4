package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"Exam-Template-Wizard-Backend/internal/logger"
	"Exam-Template-Wizard-Backend/internal/model"
)

var ErrDraftNotFound = errors.New("draft not found")

// Backend is a flat string key/value store. Get reports a missing key with
// ok=false rather than an error.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// DraftStore keeps one serialized TemplateDraft per key. Writes overwrite
// whatever is stored; there is no versioning.
type DraftStore struct {
	backend Backend
	prefix  string
}

func NewDraftStore(backend Backend, prefix string) *DraftStore {
	return &DraftStore{backend: backend, prefix: prefix}
}

func (s *DraftStore) Save(ctx context.Context, key string, draft *model.TemplateDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, s.prefix+key, string(data)); err != nil {
		return fmt.Errorf("save draft %s: %w", key, err)
	}
	return nil
}

// Load returns the stored draft, or ok=false when nothing usable is stored.
// Unreadable snapshots and backend failures are logged and reported as
// absent so the user can always start over.
func (s *DraftStore) Load(ctx context.Context, key string) (*model.TemplateDraft, bool) {
	log := logger.WithContext(ctx).WithField("key", key)

	raw, ok, err := s.backend.Get(ctx, s.prefix+key)
	if err != nil {
		log.WithError(err).Warn("draft store read failed, treating draft as absent")
		return nil, false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, false
	}

	var draft model.TemplateDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		log.WithError(err).Warn("stored draft is not readable, ignoring it")
		return nil, false
	}
	if draft.Subjects == nil {
		draft.Subjects = []model.SubjectAssignment{}
	}
	for i := range draft.Subjects {
		if draft.Subjects[i].Questions == nil {
			draft.Subjects[i].Questions = []model.Question{}
		}
	}
	return &draft, true
}

// SaveAssignment writes back the role and questions of one subject
// assignment. The stored subject itself is not replaced.
func (s *DraftStore) SaveAssignment(ctx context.Context, key string, index int, a model.SubjectAssignment) error {
	draft, ok := s.Load(ctx, key)
	if !ok {
		return ErrDraftNotFound
	}
	if index < 0 || index >= len(draft.Subjects) {
		return fmt.Errorf("subject %d of draft %s: %w", index, key, ErrDraftNotFound)
	}
	if a.Questions == nil {
		a.Questions = []model.Question{}
	}
	a.Subject = draft.Subjects[index].Subject
	draft.Subjects[index] = a
	return s.Save(ctx, key, draft)
}

func (s *DraftStore) Clear(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, s.prefix+key); err != nil {
		return fmt.Errorf("clear draft %s: %w", key, err)
	}
	return nil
}

// List returns the keys of every stored draft, including ones Load would
// reject.
func (s *DraftStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, s.prefix))
	}
	return out, nil
}
