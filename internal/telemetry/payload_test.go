package telemetry

import (
	"encoding/json"
	"net/url"
	"testing"

	"pulse/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("field1", "23.5")
	q.Set("field3", " -7 ")
	q.Set("lat", "55.75")
	q.Set("lon", "37.61")
	q.Set("elevation", "144")
	q.Set("status", "ok")

	p, err := PayloadFromQuery(q)
	require.NoError(t, err)

	require.NotNil(t, p.Fields[0])
	assert.Equal(t, 23.5, *p.Fields[0])
	assert.Nil(t, p.Fields[1], "missing field is absence, not zero")
	require.NotNil(t, p.Fields[2])
	assert.Equal(t, -7.0, *p.Fields[2])
	assert.Equal(t, 55.75, *p.Latitude)
	assert.Equal(t, 37.61, *p.Longitude)
	assert.Equal(t, 144.0, *p.Elevation)
	assert.Equal(t, "ok", p.Status)
}

func TestPayloadFromQueryBlankIsAbsent(t *testing.T) {
	q := url.Values{}
	q.Set("field2", "   ")
	p, err := PayloadFromQuery(q)
	require.NoError(t, err)
	assert.Nil(t, p.Fields[1])
}

func TestPayloadFromQueryMalformed(t *testing.T) {
	q := url.Values{}
	q.Set("field1", "warm-ish")
	_, err := PayloadFromQuery(q)
	require.ErrorIs(t, err, apperr.ErrValidation)

	q = url.Values{}
	q.Set("lat", "north")
	_, err = PayloadFromQuery(q)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPayloadFromBody(t *testing.T) {
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(
		`{"api_key":"k","field1":"23.5","field2":11,"field4":null,"lat":"1.5","status":"battery low"}`,
	), &body))

	p, err := PayloadFromBody(body)
	require.NoError(t, err)
	assert.Equal(t, 23.5, *p.Fields[0], "numeric string accepted")
	assert.Equal(t, 11.0, *p.Fields[1], "json number accepted")
	assert.Nil(t, p.Fields[3], "explicit null is absence")
	assert.Equal(t, 1.5, *p.Latitude)
	assert.Equal(t, "battery low", p.Status)
}

func TestPayloadFromBodyMalformed(t *testing.T) {
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{"field1":"hot"}`), &body))
	_, err := PayloadFromBody(body)
	require.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, json.Unmarshal([]byte(`{"field1":true}`), &body))
	_, err = PayloadFromBody(body)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

// Оба транспорта обязаны давать одно хранимое представление.
func TestQueryAndBodyNormalizeIdentically(t *testing.T) {
	q := url.Values{}
	q.Set("field1", "23.5")
	q.Set("field5", "0")
	fromQuery, err := PayloadFromQuery(q)
	require.NoError(t, err)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{"field1":23.5,"field5":"0"}`), &body))
	fromBody, err := PayloadFromBody(body)
	require.NoError(t, err)

	assert.Equal(t, fromQuery, fromBody)
}
