package engine

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hr-backend/internal/metadata"
	"hr-backend/internal/schema"
	"hr-backend/internal/store"
)

func TestBuildListSQL(t *testing.T) {
	cols := []string{"code", "name_th"}

	tests := []struct {
		driver string
		q      string
		want   string
		params int
	}{
		{"mysql", "", "SELECT * FROM `gender` ORDER BY `gender_id` DESC LIMIT 500", 0},
		{"mysql", "ชาย", "SELECT * FROM `gender` WHERE (`code` LIKE ? OR `name_th` LIKE ?) ORDER BY `gender_id` DESC LIMIT 500", 2},
		{"postgres", "m", `SELECT * FROM "gender" WHERE (CAST("code" AS TEXT) ILIKE $1 OR CAST("name_th" AS TEXT) ILIKE $2) ORDER BY "gender_id" DESC LIMIT 500`, 2},
		{"sqlite", "m", `SELECT * FROM "gender" WHERE ("code" LIKE ?1 OR "name_th" LIKE ?2) ORDER BY "gender_id" DESC LIMIT 500`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.driver+"/"+tt.q, func(t *testing.T) {
			qr := BuildListSQL(store.NewDialect(tt.driver), "gender", "gender_id", cols, tt.q)
			assert.Equal(t, tt.want, qr.SQL)
			require.Len(t, qr.Params, tt.params)
			for _, p := range qr.Params {
				assert.Equal(t, "%"+tt.q+"%", p)
			}
		})
	}
}

func TestBuildJoinedListSQL(t *testing.T) {
	person, ok := metadata.Default().Resolve("person")
	require.True(t, ok)
	link, join := person.ListLink(), person.ListJoin
	require.NotNil(t, link)

	qr := BuildJoinedListSQL(store.NewDialect("mysql"), "person", "person_id", []string{"first_name_th"}, link, join, "")
	assert.Equal(t, "SELECT t.*, j.`name_th` AS `department_name` FROM ("+
		"SELECT o.*, (SELECT x.`department_id` FROM `person_department` x WHERE x.`person_id` = o.`person_id` "+
		"ORDER BY x.`is_primary` DESC, x.`relation_level` ASC, x.`department_id` ASC LIMIT 1) AS `department_id` FROM `person` o) t "+
		"LEFT JOIN `department` j ON j.`department_id` = t.`department_id` ORDER BY t.`person_id` DESC LIMIT 500", qr.SQL)
	assert.Empty(t, qr.Params)

	qr = BuildJoinedListSQL(store.NewDialect("postgres"), "person", "person_id", []string{"first_name_th", "position_work"}, link, join, "คลัง")
	assert.Contains(t, qr.SQL, `WHERE (CAST(t."first_name_th" AS TEXT) ILIKE $1 OR CAST(t."position_work" AS TEXT) ILIKE $2 OR CAST(j."name_th" AS TEXT) ILIKE $3)`)
	assert.Equal(t, []any{"%คลัง%", "%คลัง%", "%คลัง%"}, qr.Params)
}

func TestBuildUpdateSQL(t *testing.T) {
	d := store.NewDialect("mysql")
	qr := BuildUpdateSQL(d, "person", "person_id",
		map[string]any{"last_name_th": "b", "first_name_th": "a"}, int64(4), "updated_at")

	assert.Equal(t, "UPDATE `person` SET `first_name_th` = ?, `last_name_th` = ?, `updated_at` = NOW() WHERE `person_id` = ?", qr.SQL)
	assert.Equal(t, []any{"a", "b", int64(4)}, qr.Params)

	qr = BuildUpdateSQL(store.NewDialect("postgres"), "gender", "gender_id", map[string]any{"code": "F"}, "2", "")
	assert.Equal(t, `UPDATE "gender" SET "code" = $1 WHERE "gender_id" = $2`, qr.SQL)
}

func TestBuildDeleteAndNullifySQL(t *testing.T) {
	d := store.NewDialect("mysql")
	assert.Equal(t, "DELETE FROM `department` WHERE `department_id` = ?",
		BuildDeleteSQL(d, "department", "department_id", 1).SQL)

	qr := BuildNullifySQL(d, metadata.Reference{Table: "department", Column: "parent_id"}, 1)
	assert.Equal(t, "UPDATE `department` SET `parent_id` = NULL WHERE `parent_id` = ?", qr.SQL)
	assert.Equal(t, []any{1}, qr.Params)
}

func TestBuildOptionsSQL(t *testing.T) {
	d := store.NewDialect("mysql")

	full := []schema.Column{{Field: "gender_id"}, {Field: "code"}, {Field: "name_th"}, {Field: "name_en"}}
	assert.Equal(t, "SELECT `gender_id` AS `id`, `code`, `name_th`, `name_en` FROM `gender` ORDER BY `name_th`",
		BuildOptionsSQL(d, "gender", "gender_id", full).SQL)

	named := []schema.Column{{Field: "univ_id"}, {Field: "name"}}
	assert.Equal(t, "SELECT `univ_id` AS `id`, `name` AS `name_th` FROM `university` ORDER BY `name`",
		BuildOptionsSQL(d, "university", "univ_id", named).SQL)

	bare := []schema.Column{{Field: "budget_id"}, {Field: "code"}}
	assert.Equal(t, "SELECT `budget_id` AS `id`, `code` FROM `budget` ORDER BY `budget_id`",
		BuildOptionsSQL(d, "budget", "budget_id", bare).SQL)
}

var showColumns = []string{"Field", "Type", "Null", "Key", "Default", "Extra"}

func mockApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h, err := NewHandler(store.NewWithDB(db, store.NewDialect("mysql")), metadata.Default(), nil, nil)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	RegisterRoutes(app.Group("/api"), h, NewFileHandler(nil, 0, nil))
	return app, mock
}

func TestList_MySQLSearch(t *testing.T) {
	app, mock := mockApp(t)

	mock.ExpectQuery("SHOW COLUMNS FROM `gender`").WillReturnRows(
		sqlmock.NewRows(showColumns).
			AddRow("gender_id", "int(11)", "NO", "PRI", nil, "auto_increment").
			AddRow("code", "varchar(50)", "YES", "", nil, "").
			AddRow("name_th", "varchar(255)", "NO", "", nil, "").
			AddRow("name_en", "varchar(255)", "YES", "", nil, ""))
	mock.ExpectQuery("SELECT * FROM `gender` WHERE (`code` LIKE ? OR `name_th` LIKE ? OR `name_en` LIKE ?) ORDER BY `gender_id` DESC LIMIT 500").
		WithArgs("%หญิง%", "%หญิง%", "%หญิง%").
		WillReturnRows(sqlmock.NewRows([]string{"gender_id", "code", "name_th", "name_en"}).
			AddRow(int64(2), "F", "หญิง", "Female"))

	req := httptest.NewRequest("GET", "/api/gender?q=%E0%B8%AB%E0%B8%8D%E0%B8%B4%E0%B8%87", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "Female", body.Rows[0]["name_en"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_MySQLTinyintIsBoolean(t *testing.T) {
	app, mock := mockApp(t)

	mock.ExpectQuery("SHOW COLUMNS FROM `person_department`").WillReturnRows(
		sqlmock.NewRows(showColumns).
			AddRow("person_department_id", "int(11)", "NO", "PRI", nil, "auto_increment").
			AddRow("person_id", "int(11)", "NO", "", nil, "").
			AddRow("relation_level", "tinyint(4)", "NO", "", nil, "").
			AddRow("is_primary", "tinyint(1)", "NO", "", nil, ""))
	mock.ExpectQuery("SELECT * FROM `person_department` ORDER BY `person_department_id` DESC LIMIT 500").
		WillReturnRows(sqlmock.NewRows([]string{"person_department_id", "person_id", "relation_level", "is_primary"}).
			AddRow(int64(2), int64(1), int64(1), int64(1)).
			AddRow(int64(1), int64(1), int64(2), int64(0)))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/person-department", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Rows, 2)
	assert.Equal(t, true, body.Rows[0]["is_primary"])
	assert.Equal(t, false, body.Rows[1]["is_primary"])
	assert.Equal(t, float64(1), body.Rows[0]["relation_level"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_NoPrimaryKeyIsSchemaError(t *testing.T) {
	app, mock := mockApp(t)

	mock.ExpectQuery("SHOW COLUMNS FROM `budget`").WillReturnRows(
		sqlmock.NewRows(showColumns).AddRow("code", "varchar(50)", "YES", "", nil, ""))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/budget", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 500, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "SCHEMA_ERROR", body["code"])
	assert.Equal(t, false, body["ok"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
