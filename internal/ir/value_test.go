package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAnyConversions(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want IRValue
	}{
		{"nil", nil, IRNull{}},
		{"bool", true, IRBool(true)},
		{"int", 7, IRInt(7)},
		{"integral float", 7.0, IRInt(7)},
		{"fractional float", 7.25, IRFloat(7.25)},
		{"float beyond 2^53", 1e300, IRFloat(1e300)},
		{"json int", json.Number("12"), IRInt(12)},
		{"json float", json.Number("1.5"), IRFloat(1.5)},
		{"string", "s", IRString("s")},
		{"passthrough", IRString("x"), IRString("x")},
		{"nested", map[string]any{"a": []any{1, "b", nil}}, IRObject{"a": IRArray{IRInt(1), IRString("b"), IRNull{}}}},
		{"typed slice", []string{"a", "b"}, IRArray{IRString("a"), IRString("b")}},
		{"typed map", map[string]int{"n": 1}, IRObject{"n": IRInt(1)}},
		{"uint8", uint8(3), IRInt(3)},
		{"pointer", func() any { s := "p"; return &s }(), IRString("p")},
		{"nil slice", []int(nil), IRNull{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAnyErrors(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"NaN", math.NaN()},
		{"Inf", math.Inf(1)},
		{"int keyed map", map[int]string{1: "a"}},
		{"channel", make(chan int)},
		{"nested NaN", []any{1, math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromAny(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestToAnyRoundTrip(t *testing.T) {
	v := IRObject{
		"n":   IRInt(1),
		"f":   IRFloat(0.5),
		"s":   IRString("x"),
		"b":   IRBool(false),
		"nil": IRNull{},
		"arr": IRArray{IRInt(2)},
	}

	plain := ToAny(v)
	m, ok := plain.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(1), m["n"])
	assert.Equal(t, 0.5, m["f"])
	assert.Nil(t, m["nil"])
	assert.Equal(t, []any{int64(2)}, m["arr"])

	back, err := FromAny(plain)
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestParseJSON(t *testing.T) {
	v, err := ParseJSON([]byte(`{"a":1,"b":2.5,"c":null,"d":[true],"big":9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"a":   IRInt(1),
		"b":   IRFloat(2.5),
		"c":   IRNull{},
		"d":   IRArray{IRBool(true)},
		"big": IRInt(9007199254740993),
	}, v)

	_, err = ParseJSON([]byte(`{"a":1} {}`))
	assert.Error(t, err)
}

func TestIRObjectJSONRoundTrip(t *testing.T) {
	in := IRObject{"z": IRInt(1), "a": IRArray{IRNull{}, IRFloat(1.25)}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[null,1.25],"z":1}`, string(data))

	var out IRObject
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestIRObjectUnmarshalRejectsNonObject(t *testing.T) {
	var out IRObject
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &out))
}

func TestCloneIsDeep(t *testing.T) {
	orig := IRObject{"inner": IRObject{"k": IRInt(1)}, "list": IRArray{IRInt(1)}}
	cp := orig.Clone()

	cp["inner"].(IRObject)["k"] = IRInt(2)
	cp["list"].(IRArray)[0] = IRInt(9)

	assert.Equal(t, IRInt(1), orig["inner"].(IRObject)["k"])
	assert.Equal(t, IRInt(1), orig["list"].(IRArray)[0])
	assert.Nil(t, IRObject(nil).Clone())
}

func TestText(t *testing.T) {
	tests := []struct {
		in   IRValue
		want string
	}{
		{nil, ""},
		{IRNull{}, ""},
		{IRString("abc"), "abc"},
		{IRInt(-3), "-3"},
		{IRFloat(2.5), "2.5"},
		{IRBool(true), "true"},
		{IRBool(false), "false"},
		{IRArray{IRInt(1)}, ""},
		{IRObject{"a": IRInt(1)}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Text(tt.in), "Text(%#v)", tt.in)
	}
}

func TestSortedKeysUTF16(t *testing.T) {
	obj := IRObject{"b": IRInt(1), "a": IRInt(2), "\uE000": IRInt(3), "\U00010000": IRInt(4)}
	assert.Equal(t, []string{"a", "b", "\U00010000", "\uE000"}, obj.SortedKeys())
}
