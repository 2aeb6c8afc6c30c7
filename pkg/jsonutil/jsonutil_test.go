package jsonutil_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/jsonutil"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := sample{Name: "disk", Count: 3}

	data, err := jsonutil.Marshal(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, jsonutil.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalIndent(t *testing.T) {
	data, err := jsonutil.MarshalIndent(map[string]int{"a": 1}, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"a\"")
}

func TestValid(t *testing.T) {
	assert.True(t, jsonutil.Valid([]byte(`{"ok":true}`)))
	assert.False(t, jsonutil.Valid([]byte(`{"ok":`)))
}

func TestMarshalWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jsonutil.MarshalWrite(&buf, sample{Name: "x"}))
	assert.Contains(t, buf.String(), `"name":"x"`)
}
