package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Exam-Template-Wizard-Backend/internal/auth"
	"Exam-Template-Wizard-Backend/internal/logger"
	"Exam-Template-Wizard-Backend/internal/model"

	"github.com/parnurzeal/gorequest"
	"github.com/sirupsen/logrus"
)

var ErrUnauthorized = errors.New("authoring API rejected the access token")

// RemoteError is a failure reported by the authoring API itself, either
// through a non-2xx status or an envelope with success=false.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authoring API error (status %d)", e.Status)
	}
	return fmt.Sprintf("authoring API error (status %d): %s", e.Status, e.Message)
}

// TemplateApiClient talks to the external authoring API. Every request
// carries the bearer token from Tokens.
type TemplateApiClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     auth.TokenSource
}

func NewTemplateApiClient(baseURL string, timeoutSec int, tokens auth.TokenSource) *TemplateApiClient {
	return &TemplateApiClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		Tokens: tokens,
	}
}

func (c *TemplateApiClient) token(ctx context.Context) (string, error) {
	if c.Tokens == nil {
		return "", ErrUnauthorized
	}
	token, err := c.Tokens.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoAccessToken) {
			return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return "", err
	}
	return token, nil
}

func setCommonHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Authorization", "Bearer "+token)
}

// do sends a JSON request and returns the envelope's data on success.
func (c *TemplateApiClient) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payloadBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request for %s: %w", path, err)
		}
		reader = bytes.NewReader(payloadBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	setCommonHeaders(req, token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response of %s: %w", path, err)
	}
	return decodeEnvelope(ctx, resp.StatusCode, bodyBytes, path)
}

func decodeEnvelope(ctx context.Context, status int, bodyBytes []byte, path string) (json.RawMessage, error) {
	log := logger.WithContext(ctx).WithFields(logrus.Fields{"path": path, "status": status})

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		log.Warn("authoring API refused the token")
		return nil, ErrUnauthorized
	}

	var env model.Envelope[json.RawMessage]
	decodeErr := json.Unmarshal(bodyBytes, &env)

	if status < 200 || status > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(bodyBytes))
		}
		log.WithField("message", msg).Warn("authoring API returned an error status")
		return nil, &RemoteError{Status: status, Message: msg}
	}
	if decodeErr != nil {
		log.WithError(decodeErr).Error("authoring API response is not an envelope")
		return nil, fmt.Errorf("decode response of %s: %w", path, decodeErr)
	}
	if !env.Success {
		if env.Status == 0 {
			env.Status = status
		}
		log.WithField("message", env.Message).Warn("authoring API reported failure")
		return nil, &RemoteError{Status: env.Status, Message: env.Message}
	}
	return env.Data, nil
}

func (c *TemplateApiClient) GetTemplateWithQuestions(ctx context.Context, id string) (*model.TemplateWithQuestions, error) {
	data, err := c.do(ctx, http.MethodGet, "/template/getWithQuestions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var out model.TemplateWithQuestions
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", id, err)
	}
	return &out, nil
}

// CreateTemplate returns the id of the created template, or "" when the
// API does not report one.
func (c *TemplateApiClient) CreateTemplate(ctx context.Context, payload model.SubmitPayload) (string, error) {
	data, err := c.do(ctx, http.MethodPost, "/template/create", payload)
	if err != nil {
		return "", err
	}
	return model.ExtractID(data), nil
}

func (c *TemplateApiClient) UpdateTemplate(ctx context.Context, id string, payload model.SubmitPayload) error {
	_, err := c.do(ctx, http.MethodPut, "/template/update/"+url.PathEscape(id), payload)
	return err
}

func (c *TemplateApiClient) ListSubjects(ctx context.Context, page, size int) ([]model.Subject, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("size", fmt.Sprint(size))
	data, err := c.do(ctx, http.MethodGet, "/subject/all?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var remote model.SubjectPage
	if err := json.Unmarshal(data, &remote); err != nil {
		return nil, fmt.Errorf("decode subjects: %w", err)
	}
	subjects := make([]model.Subject, 0, len(remote))
	for _, s := range remote {
		subjects = append(subjects, s.ToSubject())
	}
	return subjects, nil
}

const maxSubjectPages = 200

// ListAllSubjects pages through the subject list until a short page, or a
// page with nothing new when the server ignores the page parameter.
func (c *TemplateApiClient) ListAllSubjects(ctx context.Context, size int) ([]model.Subject, error) {
	if size <= 0 {
		size = 100
	}
	var all []model.Subject
	seen := make(map[int]bool)
	for page := 0; page < maxSubjectPages; page++ {
		subjects, err := c.ListSubjects(ctx, page, size)
		if err != nil {
			return nil, err
		}
		added := 0
		for _, s := range subjects {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			all = append(all, s)
			added++
		}
		if len(subjects) < size || added == 0 {
			return all, nil
		}
	}
	logger.WithContext(ctx).WithField("pages", maxSubjectPages).Warn("subject listing stopped at the page limit")
	return all, nil
}

// UploadImage posts the file as multipart field "file" and returns the URL
// the API stored it under.
func (c *TemplateApiClient) UploadImage(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", filename, err)
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"file":         filename,
		"content_type": contentType,
		"size":         size,
	}).Debug("uploading image to authoring API")

	request := gorequest.New().Post(c.BaseURL + "/template/image/upload")
	if c.HTTPClient != nil && c.HTTPClient.Timeout > 0 {
		request = request.Timeout(c.HTTPClient.Timeout)
	}
	resp, body, errs := request.
		Type(gorequest.TypeMultipart).
		Set("Authorization", "Bearer "+token).
		Set("Accept", "application/json").
		SendFile(content, filename, "file").
		EndBytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("upload image %s: %w", filename, errors.Join(errs...))
	}

	data, err := decodeEnvelope(ctx, resp.StatusCode, body, "/template/image/upload")
	if err != nil {
		return "", err
	}
	var imageURL model.FlexString
	_ = imageURL.UnmarshalJSON(data)
	if imageURL.Trimmed() == "" {
		return "", &RemoteError{Status: resp.StatusCode, Message: "upload response carried no URL"}
	}
	return imageURL.Trimmed(), nil
}
