package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MajorMinorPatch
		wantErr bool
	}{
		{name: "three parts", input: "2023.1.0", want: New(2023, 1, 0)},
		{name: "two parts", input: "13.6", want: New(13, 6, 0)},
		{name: "leading zero", input: "1.02", want: New(1, 2, 0)},
		{name: "all zero", input: "0.0.0", want: New(0, 0, 0)},
		{name: "single part", input: "1", wantErr: true},
		{name: "four parts", input: "1.2.3.4", wantErr: true},
		{name: "not numeric", input: "1.a.3", wantErr: true},
		{name: "trailing letter", input: "1.2.3a", wantErr: true},
		{name: "empty component", input: "1..3", wantErr: true},
		{name: "signed component", input: "1.-2", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "suffix", input: "13.06-NG", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidVersionString)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLenient(t *testing.T) {
	tests := []struct {
		input string
		want  MajorMinorPatch
	}{
		{input: "1", want: New(1, 0, 0)},
		{input: "1.2", want: New(1, 2, 0)},
		{input: "1.2.3", want: New(1, 2, 3)},
		{input: "13.06", want: New(13, 6, 0)},
		{input: "1.2.3.4", want: New(0, 0, 0)},
		{input: "3,2,1", want: New(0, 0, 0)},
		{input: "13.06-NG", want: New(0, 0, 0)},
		{input: "June Release '21", want: New(0, 0, 0)},
		{input: "v1.2", want: New(0, 0, 0)},
		{input: "", want: New(0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLenient(tt.input))
		})
	}
}

func TestLenientPatternGroups(t *testing.T) {
	match := LenientPattern.FindStringSubmatch("1.2.3")
	require.NotNil(t, match, "LenientPattern did not match 1.2.3")
	assert.Empty(t, match[2])
	assert.Equal(t, "2", match[3])
	assert.Equal(t, "3", match[4])
}

func TestStringRoundTrip(t *testing.T) {
	for _, raw := range []string{"0.0.0", "2024.1.0", "13.6.0", "1.2.3"} {
		v, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, v.String())
		assert.Equal(t, v, ParseLenient(v.String()))
	}
	assert.Equal(t, "13.6.0", New(13, 6, 0).String())
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b MajorMinorPatch
		want int
	}{
		{a: New(1, 0, 0), b: New(1, 0, 0), want: 0},
		{a: New(2022, 1, 0), b: New(2023, 1, 0), want: -1},
		{a: New(1, 3, 0), b: New(1, 2, 9), want: 1},
		{a: New(1, 2, 3), b: New(1, 2, 4), want: -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.Compare(tt.b), "%v.Compare(%v)", tt.a, tt.b)
		assert.Equal(t, tt.want < 0, tt.a.Less(tt.b), "%v.Less(%v)", tt.a, tt.b)
	}
}

func TestJSONShape(t *testing.T) {
	data, err := json.Marshal(New(2023, 1, 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"major":2023,"minor":1,"patch":0}`, string(data))

	var v MajorMinorPatch
	assert.Error(t, json.Unmarshal([]byte(`{"major":-1,"minor":0,"patch":0}`), &v))
}
