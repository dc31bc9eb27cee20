package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-backend/internal/store"
)

func countPrimaryLinks(t *testing.T, env *testEnv, personID int) int64 {
	t.Helper()
	row, err := store.QueryRow(context.Background(), env.store.DB(),
		`SELECT COUNT(*) AS n FROM person_department WHERE person_id = ? AND relation_level = 1 AND is_primary = 1`, personID)
	require.NoError(t, err)
	return row["n"].(int64)
}

func TestPersonGeneralSection(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/department", map[string]any{"name_th": "กองบริหารงานบุคคล"})
	env.do(t, "POST", "/api/department", map[string]any{"name_th": "กองคลัง"})
	status, body := env.do(t, "POST", "/api/person", map[string]any{"first_name_th": "สมชาย", "last_name_th": "ใจดี"})
	require.Equal(t, 200, status, body)
	require.Equal(t, float64(1), body["insertId"])

	status, body = env.do(t, "GET", "/api/person/1/general", nil)
	require.Equal(t, 200, status, body)
	assert.Equal(t, "สมชาย", body["first_name_th"])
	assert.Contains(t, body, "department_id")
	assert.Nil(t, body["department_id"])
	assert.NotContains(t, body, "home_no")

	status, body = env.do(t, "PUT", "/api/person/1/general", map[string]any{
		"first_name_th": "สมหญิง",
		"email":         "somying@example.ac.th",
		"department_id": 1,
		"home_no":       "99/1",
	})
	require.Equal(t, 200, status, body)
	assert.Equal(t, map[string]any{"ok": true}, body)

	_, body = env.do(t, "GET", "/api/person/1/general", nil)
	assert.Equal(t, "สมหญิง", body["first_name_th"])
	assert.Equal(t, "somying@example.ac.th", body["email"])
	assert.Equal(t, float64(1), body["department_id"])
	assert.Equal(t, int64(1), countPrimaryLinks(t, env, 1))

	_, body = env.do(t, "GET", "/api/person/1/address", nil)
	assert.Nil(t, body["home_no"], "fields outside the section are not written")

	row, err := store.QueryRow(context.Background(), env.store.DB(), `SELECT updated_at FROM person WHERE person_id = 1`)
	require.NoError(t, err)
	assert.NotNil(t, row["updated_at"])

	env.do(t, "PUT", "/api/person/1/general", map[string]any{"department_id": "2"})
	_, body = env.do(t, "GET", "/api/person/1/general", nil)
	assert.Equal(t, float64(2), body["department_id"])
	assert.Equal(t, int64(1), countPrimaryLinks(t, env, 1))

	env.do(t, "PUT", "/api/person/1/general", map[string]any{"department_id": nil})
	_, body = env.do(t, "GET", "/api/person/1/general", nil)
	assert.Nil(t, body["department_id"])
	assert.Equal(t, int64(0), countPrimaryLinks(t, env, 1))
}

func TestPersonSection_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/person", map[string]any{"first_name_th": "สมชาย", "last_name_th": "ใจดี"})

	for _, path := range []string{"/api/person/abc/general", "/api/person/0/general", "/api/person/-3/address"} {
		status, body := env.do(t, "GET", path, nil)
		assert.Equal(t, 400, status, path)
		assert.Equal(t, "invalid id", body["error"], path)
	}

	status, body := env.do(t, "GET", "/api/person/99/general", nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "not found", body["error"])

	status, _ = env.do(t, "PUT", "/api/person/99/address", map[string]any{"home_no": "1"})
	assert.Equal(t, 404, status)

	status, _ = env.do(t, "GET", "/api/person/1/salary", nil)
	assert.Equal(t, 404, status)

	status, body = env.do(t, "PUT", "/api/person/1/address", map[string]any{"first_name_th": "x"})
	assert.Equal(t, 400, status)
	assert.Equal(t, "No fields to update", body["error"])

	status, body = env.do(t, "PUT", "/api/person/1/employment", map[string]any{"income_amount": "lots"})
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])

	status, body = env.do(t, "PUT", "/api/person/1/employment", map[string]any{"income_amount": 35000.5, "date_inwork": "2020-06-01"})
	require.Equal(t, 200, status, body)
}

func TestPersonList_PrimaryDepartment(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/department", map[string]any{"name_th": "ฝ่ายบุคคล"})
	env.do(t, "POST", "/api/department", map[string]any{"name_th": "กองคลัง"})
	env.do(t, "POST", "/api/person", map[string]any{"first_name_th": "สมชาย", "last_name_th": "ใจดี", "position_work": "นักทรัพยากรบุคคล"})
	env.do(t, "POST", "/api/person", map[string]any{"first_name_th": "สมหญิง", "last_name_th": "รักงาน"})
	env.do(t, "POST", "/api/person", map[string]any{"first_name_th": "มานะ", "last_name_th": "อดทน"})

	links := []map[string]any{
		{"person_id": 1, "department_id": 2, "relation_level": 1, "is_primary": false},
		{"person_id": 1, "department_id": 1, "relation_level": 2, "is_primary": true},
		{"person_id": 2, "department_id": 1, "relation_level": 3, "is_primary": false},
		{"person_id": 2, "department_id": 2, "relation_level": 2, "is_primary": false},
	}
	for _, l := range links {
		status, body := env.do(t, "POST", "/api/person-department", l)
		require.Equal(t, 200, status, body)
	}

	status, body := env.do(t, "GET", "/api/person", nil)
	require.Equal(t, 200, status, body)
	rows := rowsOf(t, body)
	require.Len(t, rows, 3)

	assert.Equal(t, float64(3), rows[0]["person_id"])
	assert.Contains(t, rows[0], "department_name")
	assert.Nil(t, rows[0]["department_id"])
	assert.Nil(t, rows[0]["department_name"])

	assert.Equal(t, float64(2), rows[1]["department_id"], "lowest relation level wins without a primary row")
	assert.Equal(t, "กองคลัง", rows[1]["department_name"])

	assert.Equal(t, float64(1), rows[2]["department_id"], "primary row wins over relation level")
	assert.Equal(t, "ฝ่ายบุคคล", rows[2]["department_name"])
	assert.Equal(t, "สมชาย", rows[2]["first_name_th"])

	_, body = env.do(t, "GET", "/api/person?q="+url.QueryEscape("ฝ่ายบุคคล"), nil)
	rows = rowsOf(t, body)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(1), rows[0]["person_id"])

	_, body = env.do(t, "GET", "/api/person?q="+url.QueryEscape("ทรัพยากร"), nil)
	rows = rowsOf(t, body)
	require.Len(t, rows, 1)
	assert.Equal(t, "นักทรัพยากรบุคคล", rows[0]["position_work"])

	_, body = env.do(t, "GET", "/api/person?q="+url.QueryEscape("กองคลัง"), nil)
	assert.Len(t, rowsOf(t, body), 1)
}

func TestList_BooleansAreJSONBooleans(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/person", map[string]any{"first_name_th": "สมชาย", "last_name_th": "ใจดี"})
	env.do(t, "POST", "/api/department", map[string]any{"name_th": "ฝ่ายบุคคล"})
	env.do(t, "POST", "/api/person-department", map[string]any{"person_id": 1, "department_id": 1, "relation_level": 2, "is_primary": false})
	env.do(t, "PUT", "/api/person/1/general", map[string]any{"department_id": 1})

	status, body := env.do(t, "GET", "/api/person-department", nil)
	require.Equal(t, 200, status, body)
	rows := rowsOf(t, body)
	require.Len(t, rows, 2)
	assert.Equal(t, true, rows[0]["is_primary"])
	assert.Equal(t, false, rows[1]["is_primary"])
	assert.Equal(t, float64(1), rows[0]["relation_level"])
}

func postUpload(t *testing.T, env *testEnv, filename string, content []byte, replace string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	if replace != "" {
		require.NoError(t, w.WriteField("replace", replace))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/uploads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	status, body := postUpload(t, env, "Photo.PNG", []byte("png-bytes"), "")
	require.Equal(t, 200, status, body)
	first, _ := body["url"].(string)
	require.True(t, strings.HasPrefix(first, "/uploads/users/"), first)
	assert.True(t, strings.HasSuffix(first, ".png"))

	stored := filepath.Join(env.uploads, filepath.FromSlash(strings.TrimPrefix(first, "/uploads/")))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	status, body = postUpload(t, env, "next.jpg", []byte("jpg-bytes"), first)
	require.Equal(t, 200, status, body)
	assert.NotEqual(t, first, body["url"])
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err), "replaced upload should be removed")
}

func TestUpload_Rejections(t *testing.T) {
	env := newTestEnv(t)

	status, body := postUpload(t, env, "big.bin", bytes.Repeat([]byte("x"), 2<<20), "")
	assert.Equal(t, 413, status)
	assert.Equal(t, "FILE_TOO_LARGE", body["code"])

	status, body = env.do(t, "POST", "/api/uploads", map[string]any{"file": "nope"})
	assert.Equal(t, 400, status)
	assert.Equal(t, "Missing file in form data", body["error"])
}

func TestUploadKey(t *testing.T) {
	key, ok := uploadKey("/uploads/users/01J.png")
	assert.True(t, ok)
	assert.Equal(t, "users/01J.png", key)

	for _, bad := range []string{"", "/uploads/", "/static/users/a.png", "/uploads/other/a.png", "/uploads/users/../../etc/passwd"} {
		_, ok := uploadKey(bad)
		assert.False(t, ok, bad)
	}
}
