package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Exam-Template-Wizard-Backend/internal/auth"
	"Exam-Template-Wizard-Backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *TemplateApiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTemplateApiClient(srv.URL, 5, auth.StaticTokenSource("secret"))
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status < 300,
		"status":  status,
		"data":    data,
		"message": "",
	})
}

func TestGetTemplateWithQuestions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/template/getWithQuestions/42", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"status":200,"message":"",
			"data":{"testTemplate":{"id":42,"title":"T","duration":"30","price":10,
				"subjects":[{"subject":{"id":1,"name":"Math","calculator":"true"},"role":"MAIN"}]},
			"questions":[{"id":5,"subjectId":"1","questionType":"WRITTEN_ANSWER","questionText":"Q","position":"1"},
				{"id":6,"subject":{"id":1},"questionType":"SINGLE_CHOICE","questionText":"R","position":2,
				 "testAnswerOptions":[{"answerText":"a","isCorrect":1},{"answerText":"b"}]}]}}`)
	})

	got, err := c.GetTemplateWithQuestions(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", got.TestTemplate.ID.Trimmed())
	assert.Equal(t, model.FlexInt(30), got.TestTemplate.Duration)
	require.Len(t, got.TestTemplate.Subjects, 1)
	assert.True(t, bool(got.TestTemplate.Subjects[0].Subject.Calculator))
	require.Len(t, got.Questions, 2)

	key, ok := got.Questions[0].SubjectKey()
	assert.True(t, ok)
	assert.Equal(t, 1, key)
	key, ok = got.Questions[1].SubjectKey()
	assert.True(t, ok)
	assert.Equal(t, 1, key)
	assert.Len(t, got.Questions[1].AnswerOptions(), 2)
	assert.True(t, bool(got.Questions[1].AnswerOptions()[0].IsCorrect))
}

func TestCreateAndUpdateTemplate(t *testing.T) {
	var created model.SubmitPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/template/create":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			writeEnvelope(w, http.StatusOK, map[string]interface{}{"id": 99, "title": created.Title})
		case r.Method == http.MethodPut && r.URL.Path == "/template/update/99":
			writeEnvelope(w, http.StatusOK, nil)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	payload := model.SubmitPayload{Title: "Algebra", Duration: 60, TestSubjectsAndQuestions: []model.SubjectPayload{}}
	id, err := c.CreateTemplate(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "99", id)
	assert.Equal(t, "Algebra", created.Title)

	require.NoError(t, c.UpdateTemplate(context.Background(), "99", payload))
}

func TestRemoteFailures(t *testing.T) {
	t.Run("envelope failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":false,"status":409,"data":null,"message":"title taken"}`)
		})
		_, err := c.CreateTemplate(context.Background(), model.SubmitPayload{})
		var remoteErr *RemoteError
		require.True(t, errors.As(err, &remoteErr))
		assert.Equal(t, 409, remoteErr.Status)
		assert.Equal(t, "title taken", remoteErr.Message)
	})

	t.Run("error status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := c.ListSubjects(context.Background(), 0, 10)
		var remoteErr *RemoteError
		require.True(t, errors.As(err, &remoteErr))
		assert.Equal(t, http.StatusInternalServerError, remoteErr.Status)
		assert.Equal(t, "boom", remoteErr.Message)
	})

	t.Run("unauthorized", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := c.GetTemplateWithQuestions(context.Background(), "1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("no token", func(t *testing.T) {
		called := false
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
		c.Tokens = auth.HeaderTokenSource{}
		_, err := c.ListSubjects(context.Background(), 0, 10)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.False(t, called)
	})
}

func TestListAllSubjectsPagesUntilShortPage(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		assert.Equal(t, "2", r.URL.Query().Get("size"))
		switch page {
		case "0":
			writeEnvelope(w, http.StatusOK, []map[string]interface{}{{"id": 1, "name": "A"}, {"id": 2, "name": "B"}})
		default:
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"content": []map[string]interface{}{{"id": "3", "name": "C", "calculator": true}},
			})
		}
	})

	subjects, err := c.ListAllSubjects(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, pages)
	require.Len(t, subjects, 3)
	assert.Equal(t, model.Subject{ID: 3, Name: "C", CalculatorAllowed: true}, subjects[2])
}

func TestListAllSubjectsStopsWhenPagesRepeat(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeEnvelope(w, http.StatusOK, []map[string]interface{}{{"id": 1, "name": "A"}, {"id": 2, "name": "B"}})
	})

	subjects, err := c.ListAllSubjects(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, subjects, 2)
}

func TestUploadImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/template/image/upload", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "png-bytes", string(content))
		assert.Equal(t, "cover.png", header.Filename)
		writeEnvelope(w, http.StatusOK, "https://cdn.example.com/cover.png")
	})

	url, err := c.UploadImage(context.Background(), "cover.png", "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cover.png", url)
}

func TestObjectNameKeepsExtension(t *testing.T) {
	name := ObjectName("Photo.JPG")
	assert.True(t, strings.HasPrefix(name, "templates/"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.NotEqual(t, name, ObjectName("Photo.JPG"))
}
