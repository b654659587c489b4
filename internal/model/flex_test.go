package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexScalarsNeverFail(t *testing.T) {
	var v struct {
		N FlexInt    `json:"n"`
		S FlexString `json:"s"`
		B FlexBool   `json:"b"`
	}

	cases := []struct {
		raw string
		n   FlexInt
		s   FlexString
		b   bool
	}{
		{`{"n": 7, "s": "x", "b": true}`, 7, "x", true},
		{`{"n": "08", "s": 12, "b": "true"}`, 8, "12", true},
		{`{"n": "4.9", "s": null, "b": 0}`, 4, "", false},
		{`{"n": "abc", "s": {"a": 1}, "b": "nope"}`, 0, "", false},
		{`{"n": [1], "s": [1, 2], "b": null}`, 0, "", false},
	}
	for _, tc := range cases {
		v.N, v.S, v.B = 99, "prev", true
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &v), tc.raw)
		assert.Equal(t, tc.n, v.N, tc.raw)
		assert.Equal(t, tc.s, v.S, tc.raw)
		assert.Equal(t, tc.b, bool(v.B), tc.raw)
	}
}

func TestFlexListSkipsBadElements(t *testing.T) {
	var l FlexList[RemoteSubject]
	require.NoError(t, json.Unmarshal([]byte(`[{"id": 1}, "bad", null, {"id": "2", "name": "B"}]`), &l))
	require.Len(t, l, 2)
	assert.Equal(t, FlexInt(2), l[1].ID)

	require.NoError(t, json.Unmarshal([]byte(`{"not": "a list"}`), &l))
	assert.NotNil(t, l)
	assert.Empty(t, l)
}

func TestQuestionTypeDecoding(t *testing.T) {
	var q Question
	require.NoError(t, json.Unmarshal([]byte(`{"questionType": " written_answer ", "position": 3}`), &q))
	assert.Equal(t, QuestionWritten, q.QuestionType)
	assert.Equal(t, FlexString("3"), q.Position)

	qt, ok := ParseQuestionType("essay")
	assert.False(t, ok)
	assert.Equal(t, QuestionType("ESSAY"), qt)

	role, ok := ParseSubjectRole("primary")
	assert.True(t, ok)
	assert.Equal(t, RoleMain, role)
}

func TestDurationDecoding(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`{"value": "90", "unit": "SECONDS"}`), &d))
	assert.Equal(t, Duration{Value: 90, Unit: UnitSeconds}, d)

	require.NoError(t, json.Unmarshal([]byte(`45`), &d))
	assert.Equal(t, Duration{Value: 45, Unit: UnitMinutes}, d)

	require.NoError(t, json.Unmarshal([]byte(`{"value": 5, "unit": "hours"}`), &d))
	assert.Equal(t, UnitMinutes, d.Unit)
}

func TestPositionKey(t *testing.T) {
	assert.Equal(t, 12, PositionKey(" 12 "))
	assert.Equal(t, 0, PositionKey("1a"))
	assert.Equal(t, 0, PositionKey(""))
	assert.Equal(t, -2, PositionKey("-2"))
}

func TestSubjectPageShapes(t *testing.T) {
	var p SubjectPage
	require.NoError(t, json.Unmarshal([]byte(`[{"id": 1}]`), &p))
	assert.Len(t, p, 1)
	require.NoError(t, json.Unmarshal([]byte(`{"items": [{"id": 1}, {"id": 2}]}`), &p))
	assert.Len(t, p, 2)
	require.NoError(t, json.Unmarshal([]byte(`"nothing"`), &p))
	assert.Empty(t, p)
}

func TestExtractID(t *testing.T) {
	assert.Equal(t, "5", ExtractID(json.RawMessage(`{"id": 5, "title": "x"}`)))
	assert.Equal(t, "abc", ExtractID(json.RawMessage(`"abc"`)))
	assert.Equal(t, "9", ExtractID(json.RawMessage(`9`)))
	assert.Equal(t, "", ExtractID(json.RawMessage(`null`)))
	assert.Equal(t, "", ExtractID(nil))
}
