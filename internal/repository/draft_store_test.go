package repository

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"Exam-Template-Wizard-Backend/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDraft() *model.TemplateDraft {
	d := model.NewTemplateDraft("d-1", model.UnitMinutes)
	d.Title = "Algebra Test"
	d.Duration.Value = 60
	d.Subjects = append(d.Subjects, model.SubjectAssignment{
		Subject: model.Subject{ID: 7, Name: "Math"},
		Role:    model.RoleMain,
		Questions: []model.Question{{
			QuestionType: model.QuestionSingleChoice,
			QuestionText: "2+2=?",
			Position:     "1",
			Options: []model.AnswerOption{
				{AnswerText: "3"},
				{AnswerText: "4", IsCorrect: true},
			},
		}},
	})
	return d
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	file, err := NewFileBackend(filepath.Join(t.TempDir(), "drafts", "drafts.json"))
	require.NoError(t, err)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	sqlBackend, err := NewSQLBackend(context.Background(), db)
	require.NoError(t, err)

	all := map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   file,
		"sql":    sqlBackend,
	}

	// Redis runs only against a throwaway database, e.g. TPL_TEST_REDIS_ADDR=localhost:6379.
	if addr := os.Getenv("TPL_TEST_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
		require.NoError(t, client.FlushDB(context.Background()).Err())
		t.Cleanup(func() { client.Close() })
		all["redis"] = NewRedisBackendFromClient(client, 0)
	}
	return all
}

func TestDraftStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewDraftStore(backend, "wizard:")

			_, ok := store.Load(ctx, "template:1")
			assert.False(t, ok, "never saved")

			require.NoError(t, store.Save(ctx, "template:1", sampleDraft()))
			got, ok := store.Load(ctx, "template:1")
			require.True(t, ok)
			assert.Equal(t, "Algebra Test", got.Title)
			assert.Equal(t, 60, got.Duration.In(model.UnitMinutes))
			require.Len(t, got.Subjects, 1)
			assert.Equal(t, "4", got.Subjects[0].Questions[0].Options[1].AnswerText)

			keys, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"template:1"}, keys)

			require.NoError(t, store.Clear(ctx, "template:1"))
			_, ok = store.Load(ctx, "template:1")
			assert.False(t, ok)
			require.NoError(t, store.Clear(ctx, "template:1"), "clearing twice is fine")
		})
	}
}

func TestDraftStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewDraftStore(NewMemoryBackend(), "")

	first := sampleDraft()
	second := sampleDraft()
	second.Title = "Geometry"
	require.NoError(t, store.Save(ctx, "k", first))
	require.NoError(t, store.Save(ctx, "k", second))

	got, ok := store.Load(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "Geometry", got.Title)
}

func TestDraftStoreLoadCorruptValueIsAbsent(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewDraftStore(backend, "")

	for _, raw := range []string{"{not json", "[1,2,3]", "   ", "null"} {
		require.NoError(t, backend.Set(ctx, "k", raw))
		d, ok := store.Load(ctx, "k")
		if ok {
			// null and arrays decode leniently; they must still be usable.
			require.NotNil(t, d)
			assert.NotNil(t, d.Subjects)
			continue
		}
		assert.Nil(t, d, raw)
	}

	require.NoError(t, backend.Set(ctx, "k", "{not json"))
	_, ok := store.Load(ctx, "k")
	assert.False(t, ok)

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys, "corrupt entries are still listed")
}

func TestDraftStoreLoadsLooseSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewDraftStore(backend, "")

	raw := `{"title":"Old","duration":"45","price":"abc",
		"subjectsWithQuestions":[{"subject":{"id":3,"name":"Bio"},"role":"MAIN",
		"questions":[{"questionType":"WRITTEN_ANSWER","questionText":"Cell?","position":2,"writtenAnswer":"unit"}]}]}`
	require.NoError(t, backend.Set(ctx, "k", raw))

	d, ok := store.Load(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, model.Duration{Value: 45, Unit: model.UnitMinutes}, d.Duration)
	assert.Equal(t, model.FlexInt(0), d.Price)
	q := d.Subjects[0].Questions[0]
	assert.Equal(t, model.QuestionWritten, q.QuestionType)
	assert.Equal(t, model.FlexString("2"), q.Position)
}

func TestSaveAssignment(t *testing.T) {
	ctx := context.Background()
	store := NewDraftStore(NewMemoryBackend(), "")

	assert.ErrorIs(t, store.SaveAssignment(ctx, "missing", 0, model.SubjectAssignment{}), ErrDraftNotFound)

	require.NoError(t, store.Save(ctx, "k", sampleDraft()))
	assert.ErrorIs(t, store.SaveAssignment(ctx, "k", 3, model.SubjectAssignment{}), ErrDraftNotFound)

	updated := sampleDraft().Subjects[0]
	updated.Questions = nil
	updated.Subject = model.Subject{}
	require.NoError(t, store.SaveAssignment(ctx, "k", 0, updated))

	got, ok := store.Load(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, model.Subject{ID: 7, Name: "Math"}, got.Subjects[0].Subject)
	assert.Empty(t, got.Subjects[0].Questions)
	assert.NotNil(t, got.Subjects[0].Questions)
	assert.Equal(t, "Algebra Test", got.Title)
}

func TestFileBackendPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "drafts.json")

	b, err := NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "a", "1"))
	require.NoError(t, b.Set(ctx, "b", "2"))
	require.NoError(t, b.Delete(ctx, "a"))

	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	_, ok, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	v, ok, err := reopened.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestFileBackendStartsEmptyOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	b, err := NewFileBackend(path)
	require.NoError(t, err)
	keys, err := b.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLBackendKeysEscapeWildcards(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	b, err := NewSQLBackend(ctx, db)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "a_1", "x"))
	require.NoError(t, b.Set(ctx, "ab1", "y"))
	require.NoError(t, b.Set(ctx, "a_1", "z"))

	require.NoError(t, b.Set(ctx, "50%off", "p"))
	require.NoError(t, b.Set(ctx, "500", "q"))

	keys, err := b.Keys(ctx, "a_")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_1"}, keys)

	keys, err = b.Keys(ctx, "50%")
	require.NoError(t, err)
	assert.Equal(t, []string{"50%off"}, keys)

	assert.Equal(t, `a\_b\%c\\%`, likePrefix(`a_b%c\`))

	v, ok, err := b.Get(ctx, "a_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "z", v)
}
