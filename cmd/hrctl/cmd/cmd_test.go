package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// sqliteEnv points hrctl at a fresh SQLite database in a temp dir.
func sqliteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", dir)
	t.Setenv("DB_NAME", "hrctl")
	t.Setenv("CATALOG_PATH", "")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		driverFlag, userPassword = "", ""
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateThenDescribe(t *testing.T) {
	sqliteEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "tables on sqlite")

	out, err = run(t, "describe", "gender")
	require.NoError(t, err, out)

	var got describeOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "gender", got.Entity)
	assert.Equal(t, "gender", got.Table)
	assert.Equal(t, "gender_id", got.PrimaryKey)
	assert.True(t, got.AutoIncrement)
	assert.Equal(t, []string{"code", "name_th", "name_en"}, got.Searchable)
	require.Len(t, got.Columns, 4)
	assert.Equal(t, "gender_id", got.Columns[0].Field)
	assert.Contains(t, out, "primary_key: gender_id")

	out, err = run(t, "describe", "person-department")
	require.NoError(t, err, out)
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "person_department", got.Table)
	assert.Equal(t, "person_department_id", got.PrimaryKey)
}

func TestDescribe_Errors(t *testing.T) {
	sqliteEnv(t)

	_, err := run(t, "describe", "payroll")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown entity "payroll"`)

	_, err = run(t, "describe", "gender")
	assert.Error(t, err, "describe before migrate has no table to read")

	_, err = run(t, "describe")
	assert.Error(t, err)
}

func TestEntities(t *testing.T) {
	dir := sqliteEnv(t)

	out, err := run(t, "entities")
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	assert.Regexp(t, `^ENTITY\s+TABLE\s+SECTIONS$`, lines[0])

	var person string
	for _, l := range lines {
		if strings.HasPrefix(l, "person ") {
			person = l
		}
	}
	require.NotEmpty(t, person, out)
	assert.Regexp(t, `^person\s+person\s+\[address employment general\]$`, person)
	assert.NotContains(t, out, "training")

	catalog := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte("entities:\n  - name: training\n    table: person_training\n"), 0o644))
	t.Setenv("CATALOG_PATH", catalog)

	out, err = run(t, "entities")
	require.NoError(t, err, out)
	assert.Regexp(t, `(?m)^training\s+person_training\s+\[\]$`, out)
}

func TestCreateUser(t *testing.T) {
	sqliteEnv(t)
	_, err := run(t, "migrate")
	require.NoError(t, err)

	_, err = run(t, "create-user", "somchai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password is required")

	out, err := run(t, "create-user", "somchai", "--password", "secret123")
	require.NoError(t, err, out)
	assert.Contains(t, out, "created user somchai")
}
