package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"Exam-Template-Wizard-Backend/internal/logger"
	"Exam-Template-Wizard-Backend/internal/model"
	"Exam-Template-Wizard-Backend/internal/repository"
	"Exam-Template-Wizard-Backend/internal/utils"
)

var (
	ErrDraftNotFound = repository.ErrDraftNotFound
	// ErrNotConfirmed is returned by Cancel when the caller has not
	// acknowledged that the draft will be lost.
	ErrNotConfirmed = errors.New("cancelling discards the draft and must be confirmed")
)

// TemplateGateway is the part of the authoring API the wizard needs.
type TemplateGateway interface {
	GetTemplateWithQuestions(ctx context.Context, id string) (*model.TemplateWithQuestions, error)
	CreateTemplate(ctx context.Context, payload model.SubmitPayload) (string, error)
	UpdateTemplate(ctx context.Context, id string, payload model.SubmitPayload) error
	ListSubjects(ctx context.Context, page, size int) ([]model.Subject, error)
	ListAllSubjects(ctx context.Context, size int) ([]model.Subject, error)
}

type ImageUploader interface {
	UploadImage(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
}

type DraftRepository interface {
	Save(ctx context.Context, key string, draft *model.TemplateDraft) error
	Load(ctx context.Context, key string) (*model.TemplateDraft, bool)
	SaveAssignment(ctx context.Context, key string, index int, a model.SubjectAssignment) error
	Clear(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// DetailsInput is a partial update of the template header. Nil fields are
// left unchanged.
type DetailsInput struct {
	Title    *string             `json:"title"`
	Duration *int                `json:"duration"`
	Unit     *model.DurationUnit `json:"durationUnit"`
	Price    *int                `json:"price"`
	ImageURL *string             `json:"imageUrl"`
}

type DraftSummary struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	ID       string `json:"id,omitempty"`
	Subjects int    `json:"subjects"`
	Readable bool   `json:"readable"`
}

type SubmitResult struct {
	Violations []model.Violation `json:"violations"`
	TemplateID string            `json:"templateId,omitempty"`
	Submitted  bool              `json:"submitted"`
}

// WizardService runs the draft lifecycle: start, edit step by step with a
// save after every change, validate, submit or cancel.
type WizardService struct {
	drafts     DraftRepository
	gateway    TemplateGateway
	uploader   ImageUploader
	reconciler *Reconciler
	unit       model.DurationUnit

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func NewWizardService(drafts DraftRepository, gateway TemplateGateway, uploader ImageUploader, reconciler *Reconciler) *WizardService {
	return &WizardService{
		drafts:     drafts,
		gateway:    gateway,
		uploader:   uploader,
		reconciler: reconciler,
		unit:       reconciler.RemoteUnit,
		locks:      make(map[string]*keyLock),
	}
}

// lock serializes mutations of one draft inside this process. An entry
// lives only while someone holds or waits for it.
func (s *WizardService) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// load rejects keys this service never hands out before touching the store.
func (s *WizardService) load(ctx context.Context, key string) (*model.TemplateDraft, bool) {
	if !utils.IsDraftKey(key) {
		return nil, false
	}
	return s.drafts.Load(ctx, key)
}

func (s *WizardService) StartCreate(ctx context.Context) (string, *model.TemplateDraft, error) {
	key, draftID := utils.NewDraftKey()
	draft := model.NewTemplateDraft(draftID, s.unit)
	if err := s.drafts.Save(ctx, key, draft); err != nil {
		return "", nil, err
	}
	logger.WithContext(logger.ContextWithDraftKey(ctx, key)).Info("started new template draft")
	return key, draft, nil
}

// StartEdit resumes a stored edit session for the template or, when there
// is none, fetches the template and stores it as a new draft.
func (s *WizardService) StartEdit(ctx context.Context, templateID string) (string, *model.TemplateDraft, error) {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return "", nil, model.Invalid("id", "template id is required")
	}
	key := utils.DraftKeyForTemplate(templateID)
	ctx = logger.ContextWithDraftKey(ctx, key)
	unlock := s.lock(key)
	defer unlock()

	if draft, ok := s.load(ctx, key); ok {
		logger.WithContext(ctx).Info("resuming stored draft")
		return key, draft, nil
	}

	remote, err := s.gateway.GetTemplateWithQuestions(ctx, templateID)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("failed to fetch template")
		return "", nil, fmt.Errorf("fetch template %s: %w", templateID, err)
	}
	draft := s.reconciler.DecomposeFromRemote(remote.TestTemplate, remote.Questions)
	if draft.ID == "" {
		draft.ID = templateID
	}
	if err := s.drafts.Save(ctx, key, draft); err != nil {
		return "", nil, err
	}
	logger.WithContext(ctx).WithField("subjects", len(draft.Subjects)).Info("loaded template into draft")
	return key, draft, nil
}

func (s *WizardService) Get(ctx context.Context, key string) (*model.TemplateDraft, error) {
	draft, ok := s.load(ctx, key)
	if !ok {
		return nil, ErrDraftNotFound
	}
	return draft, nil
}

func (s *WizardService) List(ctx context.Context) ([]DraftSummary, error) {
	keys, err := s.drafts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DraftSummary, 0, len(keys))
	for _, key := range keys {
		summary := DraftSummary{Key: key}
		if d, ok := s.load(ctx, key); ok {
			summary.Title = d.Title
			summary.ID = d.ID
			summary.Subjects = len(d.Subjects)
			summary.Readable = true
		}
		out = append(out, summary)
	}
	return out, nil
}

// mutate loads the draft, applies fn and saves the result. Nothing is
// saved when fn fails.
func (s *WizardService) mutate(ctx context.Context, key string, fn func(c *Composer) error) (*model.TemplateDraft, error) {
	ctx = logger.ContextWithDraftKey(ctx, key)
	unlock := s.lock(key)
	defer unlock()

	draft, ok := s.load(ctx, key)
	if !ok {
		return nil, ErrDraftNotFound
	}
	c := NewComposer(draft)
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.drafts.Save(ctx, key, c.Draft); err != nil {
		logger.WithContext(ctx).WithError(err).Error("failed to save draft")
		return nil, err
	}
	return c.Draft, nil
}

func (s *WizardService) UpdateDetails(ctx context.Context, key string, in DetailsInput) (*model.TemplateDraft, error) {
	return s.mutate(ctx, key, func(c *Composer) error {
		d := c.Draft
		if in.Unit != nil && !in.Unit.IsValid() {
			return model.Invalid("durationUnit", "unknown unit %q", *in.Unit)
		}
		if in.Duration != nil && *in.Duration < 0 {
			return model.Invalid("duration", "duration cannot be negative")
		}
		if in.Price != nil && *in.Price < 0 {
			return model.Invalid("price", "price cannot be negative")
		}

		if in.Title != nil {
			d.Title = *in.Title
		}
		if in.Duration != nil {
			d.Duration.Value = model.FlexInt(*in.Duration)
		}
		if in.Unit != nil {
			d.Duration.Unit = *in.Unit
		} else if !d.Duration.Unit.IsValid() {
			d.Duration.Unit = s.unit
		}
		if in.Price != nil {
			d.Price = model.FlexInt(*in.Price)
		}
		if in.ImageURL != nil {
			d.ImageURL = strings.TrimSpace(*in.ImageURL)
		}
		return nil
	})
}

// AddSubject appends the subject. An empty role takes the suggested one.
func (s *WizardService) AddSubject(ctx context.Context, key string, subject *model.Subject, role string) (*model.TemplateDraft, error) {
	return s.mutate(ctx, key, func(c *Composer) error {
		r := c.SuggestedRole()
		if strings.TrimSpace(role) != "" {
			parsed, ok := model.ParseSubjectRole(role)
			if !ok {
				return model.Invalid("role", "unknown role %q", role)
			}
			r = parsed
		}
		return c.AddSubject(subject, r)
	})
}

func (s *WizardService) RemoveSubject(ctx context.Context, key string, index int) (*model.TemplateDraft, error) {
	return s.mutate(ctx, key, func(c *Composer) error {
		c.RemoveSubject(index)
		return nil
	})
}

// SaveAssignment writes back one subject's role and questions as edited on
// the questions step. The subject bound at index is kept.
func (s *WizardService) SaveAssignment(ctx context.Context, key string, index int, a model.SubjectAssignment) (*model.TemplateDraft, error) {
	ctx = logger.ContextWithDraftKey(ctx, key)
	unlock := s.lock(key)
	defer unlock()

	current, ok := s.load(ctx, key)
	if !ok {
		return nil, ErrDraftNotFound
	}
	if index < 0 || index >= len(current.Subjects) {
		return nil, model.Invalid("subject", "no subject at index %d", index)
	}
	role, ok := model.ParseSubjectRole(string(a.Role))
	if !ok {
		return nil, model.Invalid("role", "unknown role %q", a.Role)
	}
	for i, other := range current.Subjects {
		if i != index && role == model.RoleMain && other.Role == model.RoleMain {
			return nil, model.Invalid("role", "the template already has a main subject")
		}
	}
	a.Role = role
	a.Subject = current.Subjects[index].Subject

	if err := s.drafts.SaveAssignment(ctx, key, index, a); err != nil {
		return nil, err
	}
	draft, ok := s.load(ctx, key)
	if !ok {
		return nil, ErrDraftNotFound
	}
	return draft, nil
}

func (s *WizardService) AddQuestion(ctx context.Context, key string, subjectIndex int, q model.Question) (*model.TemplateDraft, error) {
	return s.mutate(ctx, key, func(c *Composer) error {
		return c.AddQuestion(subjectIndex, q)
	})
}

func (s *WizardService) RemoveQuestion(ctx context.Context, key string, subjectIndex, questionIndex int) (*model.TemplateDraft, error) {
	return s.mutate(ctx, key, func(c *Composer) error {
		c.RemoveQuestion(subjectIndex, questionIndex)
		return nil
	})
}

func (s *WizardService) UpdateQuestionOption(ctx context.Context, key string, subjectIndex, questionIndex, optionIndex int, field OptionField, value interface{}) (*model.TemplateDraft, error) {
	return s.mutate(ctx, key, func(c *Composer) error {
		return c.UpdateQuestionOption(subjectIndex, questionIndex, optionIndex, field, value)
	})
}

func (s *WizardService) Validate(ctx context.Context, key string) ([]model.Violation, error) {
	draft, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return ValidateForSubmit(draft), nil
}

// Submit sends the draft when it has no violations and clears it on
// success. A failed remote call leaves the draft in place for a retry.
func (s *WizardService) Submit(ctx context.Context, key string) (*SubmitResult, error) {
	ctx = logger.ContextWithDraftKey(ctx, key)
	unlock := s.lock(key)
	defer unlock()

	draft, ok := s.load(ctx, key)
	if !ok {
		return nil, ErrDraftNotFound
	}
	if violations := ValidateForSubmit(draft); len(violations) > 0 {
		return &SubmitResult{Violations: violations}, nil
	}

	payload := s.reconciler.FlattenForSubmit(draft)
	log := logger.WithContext(ctx)

	templateID := draft.ID
	if templateID == "" {
		id, err := s.gateway.CreateTemplate(ctx, payload)
		if err != nil {
			log.WithError(err).Error("failed to create template")
			return nil, fmt.Errorf("create template: %w", err)
		}
		templateID = id
	} else if err := s.gateway.UpdateTemplate(ctx, templateID, payload); err != nil {
		log.WithError(err).Error("failed to update template")
		return nil, fmt.Errorf("update template %s: %w", templateID, err)
	}

	if err := s.drafts.Clear(ctx, key); err != nil {
		// The template itself is already stored remotely.
		log.WithError(err).Warn("template submitted but draft could not be cleared")
	}
	log.WithField("template_id", templateID).Info("template submitted")
	return &SubmitResult{Violations: []model.Violation{}, TemplateID: templateID, Submitted: true}, nil
}

func (s *WizardService) Cancel(ctx context.Context, key string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	ctx = logger.ContextWithDraftKey(ctx, key)
	unlock := s.lock(key)
	err := s.drafts.Clear(ctx, key)
	unlock()
	if err != nil {
		return err
	}
	logger.WithContext(ctx).Info("draft discarded")
	return nil
}

func (s *WizardService) Subjects(ctx context.Context, page, size int) ([]model.Subject, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	subjects, err := s.gateway.ListSubjects(ctx, page, size)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// AllSubjects returns the whole subject catalogue for the subject picker.
func (s *WizardService) AllSubjects(ctx context.Context) ([]model.Subject, error) {
	subjects, err := s.gateway.ListAllSubjects(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

func (s *WizardService) UploadImage(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", model.Invalid("file", "file name is required")
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return "", model.Invalid("file", "only images can be uploaded, got %s", contentType)
	}
	url, err := s.uploader.UploadImage(ctx, filename, contentType, r, size)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("file", filename).Error("image upload failed")
		return "", fmt.Errorf("upload image: %w", err)
	}
	return url, nil
}
