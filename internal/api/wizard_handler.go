package api

import (
	"errors"
	"net/http"
	"strconv"

	"Exam-Template-Wizard-Backend/internal/client"
	"Exam-Template-Wizard-Backend/internal/logger"
	"Exam-Template-Wizard-Backend/internal/model"
	"Exam-Template-Wizard-Backend/internal/service"

	"github.com/gin-gonic/gin"
)

type AddSubjectRequest struct {
	Subject *model.Subject `json:"subject" binding:"required"`
	// Role may be left empty to take the suggested role. Unknown roles are
	// rejected by the service.
	Role string `json:"role"`
}

type UpdateOptionRequest struct {
	Field string      `json:"field" binding:"required,oneof=answerText imageUrl isCorrect"`
	Value interface{} `json:"value"`
}

type DraftResponse struct {
	Key           string               `json:"key"`
	Draft         *model.TemplateDraft `json:"draft"`
	SuggestedRole model.SubjectRole    `json:"suggestedRole"`
}

type WizardHandler struct {
	wizardService *service.WizardService
}

func NewWizardHandler(wizardService *service.WizardService) *WizardHandler {
	return &WizardHandler{wizardService: wizardService}
}

func (h *WizardHandler) handleError(c *gin.Context, err error, contextMsg string) {
	var validationErr *model.ValidationError
	var remoteErr *client.RemoteError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validationErr.Message, "field": validationErr.Field})
	case errors.Is(err, service.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
	case errors.Is(err, service.ErrNotConfirmed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, client.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "the authoring API rejected the access token"})
	case errors.As(err, &remoteErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": contextMsg, "details": remoteErr.Message})
	default:
		logger.WithContext(c.Request.Context()).WithError(err).Error(contextMsg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": contextMsg, "details": err.Error()})
	}
}

func (h *WizardHandler) respondDraft(c *gin.Context, status int, key string, draft *model.TemplateDraft) {
	c.JSON(status, DraftResponse{Key: key, Draft: draft, SuggestedRole: service.NewComposer(draft).SuggestedRole()})
}

// indexParam reads a numeric path parameter, answering 400 when it is not
// a number.
func indexParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " index"})
		return 0, false
	}
	return n, true
}

func (h *WizardHandler) StartCreateHandler(c *gin.Context) {
	key, draft, err := h.wizardService.StartCreate(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "failed to start draft")
		return
	}
	h.respondDraft(c, http.StatusCreated, key, draft)
}

func (h *WizardHandler) StartEditHandler(c *gin.Context) {
	key, draft, err := h.wizardService.StartEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "failed to load template")
		return
	}
	h.respondDraft(c, http.StatusOK, key, draft)
}

func (h *WizardHandler) ListDraftsHandler(c *gin.Context) {
	drafts, err := h.wizardService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "failed to list drafts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

func (h *WizardHandler) GetDraftHandler(c *gin.Context) {
	key := c.Param("key")
	draft, err := h.wizardService.Get(c.Request.Context(), key)
	if err != nil {
		h.handleError(c, err, "failed to load draft")
		return
	}
	h.respondDraft(c, http.StatusOK, key, draft)
}

func (h *WizardHandler) UpdateDetailsHandler(c *gin.Context) {
	var req service.DetailsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	key := c.Param("key")
	draft, err := h.wizardService.UpdateDetails(c.Request.Context(), key, req)
	if err != nil {
		h.handleError(c, err, "failed to update draft")
		return
	}
	h.respondDraft(c, http.StatusOK, key, draft)
}

func (h *WizardHandler) CancelHandler(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if err := h.wizardService.Cancel(c.Request.Context(), c.Param("key"), confirmed); err != nil {
		h.handleError(c, err, "failed to discard draft")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WizardHandler) AddSubjectHandler(c *gin.Context) {
	var req AddSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	key := c.Param("key")
	draft, err := h.wizardService.AddSubject(c.Request.Context(), key, req.Subject, req.Role)
	if err != nil {
		h.handleError(c, err, "failed to add subject")
		return
	}
	h.respondDraft(c, http.StatusOK, key, draft)
}

func (h *WizardHandler) RemoveSubjectHandler(c *gin.Context) {
	subject, ok := indexParam(c, "subject")
	if !ok {
		return
	}
	key := c.Param("key")
	draft, err := h.wizardService.RemoveSubject(c.Request.Context(), key, subject)
	if err != nil {
		h.handleError(c, err, "failed to remove subject")
		return
	}
	h.respondDraft(c, http.StatusOK, key, draft)
}

func (h *WizardHandler) SaveAssignmentHandler(c *gin.Context) {
	subject, ok := indexParam(c, "subject")
	if !ok {
		return
	}
	var req model.SubjectAssignment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	key := c.Param("key")
	draft, err := h.wizardService.SaveAssignment(c.Request.Context(), key, subject, req)
	if err != nil {
		h.handleError(c, err, "failed to save subject")
		return
	}
	h.respondDraft(c, http.StatusOK, key, draft)
}

func (h *WizardHandler) AddQuestionHandler(c *gin.Context) {
	subject, ok := indexParam(c, "subject")
	if !ok {
		return
	}
	var req model.Question
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	key := c.Param("key")
	draft, err := h.wizardService.AddQuestion(c.Request.Context(), key, subject, req)
	if err != nil {
		h.handleError(c, err, "failed to add question")
		return
	}
	h.respondDraft(c, http.StatusOK, key, draft)
}

func (h *WizardHandler) RemoveQuestionHandler(c *gin.Context) {
	subject, ok := indexParam(c, "subject")
	if !ok {
		return
	}
	question, ok := indexParam(c, "question")
	if !ok {
		return
	}
	key := c.Param("key")
	draft, err := h.wizardService.RemoveQuestion(c.Request.Context(), key, subject, question)
	if err != nil {
		h.handleError(c, err, "failed to remove question")
		return
	}
	h.respondDraft(c, http.StatusOK, key, draft)
}

func (h *WizardHandler) UpdateOptionHandler(c *gin.Context) {
	subject, ok := indexParam(c, "subject")
	if !ok {
		return
	}
	question, ok := indexParam(c, "question")
	if !ok {
		return
	}
	option, ok := indexParam(c, "option")
	if !ok {
		return
	}
	var req UpdateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	key := c.Param("key")
	draft, err := h.wizardService.UpdateQuestionOption(c.Request.Context(), key, subject, question, option,
		service.OptionField(req.Field), req.Value)
	if err != nil {
		h.handleError(c, err, "failed to update option")
		return
	}
	h.respondDraft(c, http.StatusOK, key, draft)
}

func (h *WizardHandler) ViolationsHandler(c *gin.Context) {
	violations, err := h.wizardService.Validate(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.handleError(c, err, "failed to validate draft")
		return
	}
	c.JSON(http.StatusOK, gin.H{"violations": violations, "ready": len(violations) == 0})
}

func (h *WizardHandler) SubmitHandler(c *gin.Context) {
	result, err := h.wizardService.Submit(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.handleError(c, err, "failed to submit template")
		return
	}
	if !result.Submitted {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WizardHandler) SubjectsHandler(c *gin.Context) {
	if all, _ := strconv.ParseBool(c.Query("all")); all {
		subjects, err := h.wizardService.AllSubjects(c.Request.Context())
		if err != nil {
			h.handleError(c, err, "failed to list subjects")
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": subjects})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	subjects, err := h.wizardService.Subjects(c.Request.Context(), page, size)
	if err != nil {
		h.handleError(c, err, "failed to list subjects")
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects, "page": page, "size": size})
}

func (h *WizardHandler) UploadImageHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer file.Close()

	url, err := h.wizardService.UploadImage(c.Request.Context(), fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), file, fileHeader.Size)
	if err != nil {
		h.handleError(c, err, "failed to upload image")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
