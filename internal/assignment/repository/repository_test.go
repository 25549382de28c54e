package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTerritory(t *testing.T) {
	condition, err := decodeTerritory([]byte(`{"city":"Utrecht","country":"NL"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"city": "Utrecht", "country": "NL"}, condition)

	condition, err = decodeTerritory(nil)
	require.NoError(t, err)
	assert.Nil(t, condition)
}

func TestDecodeTerritoryRejectsNonStringValues(t *testing.T) {
	for _, raw := range []string{`{"zip":1234}`, `{"city":["A","B"]}`, `[]`} {
		condition, err := decodeTerritory([]byte(raw))
		assert.Error(t, err, raw)
		assert.Nil(t, condition, raw)
	}
}
