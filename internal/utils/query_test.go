package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryList(t *testing.T) {
	q := url.Values{"expand": {"unit, user", "accident_type"}, "empty": {""}}

	assert.Equal(t, []string{"unit", "user", "accident_type"}, ParseQueryList(q, "expand"))
	assert.Nil(t, ParseQueryList(q, "missing"))
	assert.Nil(t, ParseQueryList(q, "empty"))
}

func TestPagination(t *testing.T) {
	skip, limit, err := Pagination(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 0, skip)
	assert.Equal(t, 100, limit)

	skip, limit, err = Pagination(url.Values{"skip": {"20"}, "limit": {"1000"}})
	require.NoError(t, err)
	assert.Equal(t, 20, skip)
	assert.Equal(t, 1000, limit)

	for _, bad := range []url.Values{
		{"skip": {"-1"}},
		{"limit": {"0"}},
		{"limit": {"1001"}},
		{"limit": {"ten"}},
	} {
		_, _, err := Pagination(bad)
		var pe *ParamError
		assert.ErrorAs(t, err, &pe, "%v", bad)
	}
}

func TestQueryFloat(t *testing.T) {
	def := 10.0
	v, err := QueryFloat(url.Values{}, "radius_km", &def, 0.1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	_, err = QueryFloat(url.Values{"radius_km": {"0.05"}}, "radius_km", &def, 0.1, 100)
	assert.EqualError(t, err, "radius_km: must be between 0.1 and 100")

	_, err = QueryFloat(url.Values{}, "latitude", nil, -90, 90)
	assert.EqualError(t, err, "latitude: is required")

	for _, raw := range []string{"NaN", "nan", "-NaN"} {
		_, err = QueryFloat(url.Values{"latitude": {raw}}, "latitude", nil, -90, 90)
		assert.EqualError(t, err, "latitude: must be a number", raw)
	}
	_, err = QueryFloat(url.Values{"radius_km": {"NaN"}}, "radius_km", &def, 0.1, 100)
	assert.EqualError(t, err, "radius_km: must be a number")
}

func TestQueryInt64(t *testing.T) {
	v, err := QueryInt64(url.Values{"unit_id": {"7"}}, "unit_id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = QueryInt64(url.Values{"unit_id": {"0"}}, "unit_id")
	assert.Error(t, err)
}
