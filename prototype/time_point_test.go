package prototype

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainTimeJSON(t *testing.T) {
	var v struct {
		Created ChainTime `json:"created"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"created":"2024-03-01T10:20:30"}`), &v))
	assert.Equal(t, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), v.Created.Time)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"created":"2024-03-01T10:20:30"}`, string(out))
}

func TestFlexInt64(t *testing.T) {
	var v struct {
		A FlexInt64 `json:"a"`
		B FlexInt64 `json:"b"`
		C FlexInt64 `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"123456789012","b":-42,"c":null}`), &v))
	assert.Equal(t, int64(123456789012), v.A.Int64())
	assert.Equal(t, int64(-42), v.B.Int64())
	assert.Equal(t, int64(0), v.C.Int64())
}
