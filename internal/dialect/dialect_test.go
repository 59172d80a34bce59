package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	for driver, want := range map[string]string{
		"mysql":     "mysql",
		"postgres":  "postgres",
		"sqlserver": "mssql",
		"mssql":     "mssql",
		"oracle":    "oracle",
		"sqlite":    "sqlite",
		"sqlite3":   "sqlite",
	} {
		s, err := Get(driver)
		require.NoError(t, err, driver)
		assert.Equal(t, want, s.Name(), driver)
	}

	_, err := Get("mongodb")
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`users`", (&MySQL{}).Quote("users"))
	assert.Equal(t, "`odd`` name`", (&MySQL{}).Quote("odd` name"))
	assert.Equal(t, `"users"`, (&Postgres{}).Quote("users"))
	assert.Equal(t, `"odd"" name"`, (&Postgres{}).Quote(`odd" name`))
	assert.Equal(t, "[users]", (&MSSQL{}).Quote("users"))
	assert.Equal(t, "[odd]] name]", (&MSSQL{}).Quote("odd] name"))
	assert.Equal(t, `"USERS"`, (&Oracle{}).Quote("USERS"))
	assert.Equal(t, `"users"`, (&SQLite{}).Quote("users"))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", (&MySQL{}).Placeholder(0))
	assert.Equal(t, "?", (&MySQL{}).Placeholder(7))
	assert.Equal(t, "$1", (&Postgres{}).Placeholder(0))
	assert.Equal(t, "$3", (&Postgres{}).Placeholder(2))
	assert.Equal(t, "@p1", (&MSSQL{}).Placeholder(0))
	assert.Equal(t, ":1", (&Oracle{}).Placeholder(0))
	assert.Equal(t, "?", (&SQLite{}).Placeholder(0))
}

func TestPlaceholders(t *testing.T) {
	pg := &Postgres{}
	assert.Equal(t, "$1, $2, $3", Placeholders(3, 0, pg.Placeholder))
	assert.Equal(t, "$4, $5", Placeholders(2, 3, pg.Placeholder))
	assert.Equal(t, "?, ?", Placeholders(2, 0, (&MySQL{}).Placeholder))
}

func TestDefaultSchema(t *testing.T) {
	assert.Equal(t, "public", (&Postgres{}).DefaultSchema(""))
	assert.Equal(t, "audit", (&Postgres{}).DefaultSchema("audit"))
	assert.Equal(t, "dbo", (&MSSQL{}).DefaultSchema(""))
	assert.Equal(t, "main", (&SQLite{}).DefaultSchema(""))
	assert.Equal(t, "sakila", (&MySQL{}).DefaultSchema("sakila"))
}

func TestParseEnumValues(t *testing.T) {
	assert.Equal(t, []string{"active", "banned", "pending"},
		parseEnumValues("enum('active','banned','pending')"))
	assert.Equal(t, []string{"a", "b"}, parseEnumValues("set('a','b')"))
	assert.Equal(t, []string{"it's"}, parseEnumValues("enum('it''s')"))
	assert.Nil(t, parseEnumValues("varchar(255)"))
	assert.Nil(t, parseEnumValues("int"))
}

func TestParseTypeArgs(t *testing.T) {
	maxLen, prec, scale := parseTypeArgs("VARCHAR(255)")
	assert.Equal(t, int64(255), maxLen)
	assert.Zero(t, prec)
	assert.Zero(t, scale)

	maxLen, prec, scale = parseTypeArgs("DECIMAL(10,2)")
	assert.Zero(t, maxLen)
	assert.Equal(t, int64(10), prec)
	assert.Equal(t, int64(2), scale)

	maxLen, prec, scale = parseTypeArgs("INTEGER")
	assert.Zero(t, maxLen)
	assert.Zero(t, prec)
	assert.Zero(t, scale)
}
