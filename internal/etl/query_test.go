package etl

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryTemplate(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		partitioned bool
		wantErr     string
	}{
		{"partitioned", "SELECT * FROM orders WHERE day = :partition_key", true, ""},
		{"trailing semicolon", "SELECT * FROM orders WHERE day = :partition_key;\n", true, ""},
		{"plain", "SELECT * FROM customers", false, ""},
		{"empty", "  ;", false, "empty"},
		{"missing token", "SELECT * FROM orders", true, "exactly once, found 0"},
		{"token twice", "SELECT * FROM o WHERE a = :partition_key OR b = :partition_key", true, "exactly once, found 2"},
		{"unexpected token", "SELECT * FROM o WHERE a = :partition_key", false, "not partitioned"},
		{"longer identifier is not the token", "SELECT :partition_keys FROM o", false, ""},
		{"token in line comment", "-- rows for :partition_key\nSELECT * FROM o WHERE day = :partition_key", true, ""},
		{"token in block comment", "SELECT * /* by :partition_key */ FROM o", false, ""},
		{"token in string literal", "SELECT ':partition_key', 'it''s :partition_key' FROM o", false, ""},
		{"commented out token", "SELECT * FROM o -- WHERE day = :partition_key", true, "exactly once, found 0"},
		{"unterminated comment", "SELECT * FROM o /* day = :partition_key", true, "exactly once, found 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQueryTemplate(tt.text, tt.partitioned)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.partitioned, q.Partitioned())
		})
	}
}

func TestQueryTemplateBind(t *testing.T) {
	q, err := ParseQueryTemplate("SELECT id FROM orders WHERE day = :partition_key ORDER BY id", true)
	require.NoError(t, err)

	atP := func(n int) string { return "@p" + strconv.Itoa(n) }
	query, args := q.Bind(atP, "2023-12-31")
	assert.Equal(t, "SELECT id FROM orders WHERE day = @p1 ORDER BY id", query)
	assert.Equal(t, []any{"2023-12-31"}, args)

	// the key never reaches the query text
	query, args = q.Bind(atP, "x'; DROP TABLE orders; --")
	assert.NotContains(t, query, "DROP")
	assert.Equal(t, []any{"x'; DROP TABLE orders; --"}, args)
}

func TestQueryTemplateBindSkipsComments(t *testing.T) {
	text := "-- rows for :partition_key\nSELECT id, ':partition_key' AS note FROM orders /* :partition_key */ WHERE day = :partition_key"
	q, err := ParseQueryTemplate(text, true)
	require.NoError(t, err)

	query, args := q.Bind(func(n int) string { return "$" + strconv.Itoa(n) }, "2023-12-31")
	assert.Equal(t, "-- rows for :partition_key\nSELECT id, ':partition_key' AS note FROM orders /* :partition_key */ WHERE day = $1", query)
	assert.Equal(t, []any{"2023-12-31"}, args)
}

func TestQueryTemplateBindUnpartitioned(t *testing.T) {
	q, err := ParseQueryTemplate("SELECT id FROM customers;", false)
	require.NoError(t, err)
	query, args := q.Bind(func(int) string { return "?" }, "2023-12-31")
	assert.Equal(t, "SELECT id FROM customers", query)
	assert.Nil(t, args)
	assert.Equal(t, "SELECT id FROM customers", q.String())
}
