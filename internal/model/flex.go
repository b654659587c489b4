package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// The authoring API and older local drafts are loosely typed: numbers arrive
// as strings and the other way round. The Flex types decode whatever shape
// they are given and never fail, so a malformed field degrades to its zero
// value instead of making the whole document unreadable.

type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(LooseInt(v))
	return nil
}

type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil || v == nil {
		*f = ""
		return nil
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		*f = ""
	default:
		*f = FlexString(cast.ToString(v))
	}
	return nil
}

func (f FlexString) Trimmed() string {
	return strings.TrimSpace(string(f))
}

type FlexBool bool

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		*f = false
		return nil
	}
	*f = FlexBool(cast.ToBool(v))
	return nil
}

// FlexList decodes a JSON array element by element, skipping elements that
// do not decode. Anything other than an array yields an empty list.
type FlexList[T any] []T

func (l *FlexList[T]) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*l = FlexList[T]{}
		return nil
	}
	out := make(FlexList[T], 0, len(raw))
	for _, item := range raw {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			continue
		}
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// LooseInt coerces a decoded JSON value to int. Strings are read as decimal
// so "08" is 8; anything unreadable is 0.
func LooseInt(v interface{}) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return 0
	default:
		n, err := cast.ToIntE(v)
		if err != nil {
			return 0
		}
		return n
	}
}

// PositionKey is the sort key of a question position. Non-numeric or
// missing positions sort as 0.
func PositionKey(p FlexString) int {
	n, err := strconv.Atoi(p.Trimmed())
	if err != nil {
		return 0
	}
	return n
}
