package tests

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	echoapi "github.com/langhour/tracker/apps/api/echo"
	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/hours"
	"github.com/langhour/tracker/core/user"
	"github.com/langhour/tracker/storage/workbook"
	testutil "github.com/langhour/tracker/tests"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newBook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func Test_hoursApi_create(t *testing.T) {
	app := setup(t)
	boss := app.createUser(t, "Boss", "boss", []string{user.RoleSupervisor})
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember}, testutil.WithSupervisor(boss.ID))
	other := app.createUser(t, "Other", "other", []string{user.RoleMember})

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: app.token(t, hero), body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"date":        "this field is required",
				"description": "this field is required",
				"modalities":  "this field is required",
			}),
		},
		{
			name: "invalid date & modality", token: app.token(t, hero), wantCode: http.StatusBadRequest,
			body: []byte(`{"date": "2024-03-01", "hours": 2, "description": "news", "modalities": ["dancing"]}`),
			wantData: marchallObj(t, map[string]string{
				"date":          "invalid date, expected MM/DD/YYYY",
				"modalities[0]": "invalid modality",
			}),
		},
		{
			name: "too many hours", token: app.token(t, hero), wantCode: http.StatusBadRequest,
			body: []byte(`{"date": "03/01/2024", "hours": 25, "description": "news", "modalities": ["Listening"]}`),
		},
		{
			name: "member cannot log for others", token: app.token(t, hero), wantCode: http.StatusNotFound,
			body:     []byte(`{"user_id": "` + other.ID + `", "date": "03/01/2024", "hours": 2, "description": "news", "modalities": ["Listening"]}`),
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/hours"
	}
	runHTTPTests(t, app, tests)

	t.Run("logged", func(t *testing.T) {
		body := []byte(`{"date": "03/01/2024", "hours": 2, "description": " news ", "modalities": ["listening", "Reading"]}`)
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/hours", app.token(t, hero), body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var entry hours.Entry
		decode(t, rec, &entry)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, hero.ID, entry.UserID)
		assert.True(t, day(2024, 3, 1).Equal(entry.Date))
		assert.Equal(t, 2, entry.Hours)
		assert.Equal(t, "news", entry.Description)
		assert.Equal(t, []string{hours.ModListening, hours.ModReading}, entry.Modalities)
	})

	t.Run("logged by supervisor", func(t *testing.T) {
		body := []byte(`{"user_id": "` + hero.ID + `", "date": "03/02/2024", "hours": 0, "description": "absent", "modalities": ["Test"]}`)
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/hours", app.token(t, boss), body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var entry hours.Entry
		decode(t, rec, &entry)
		assert.Equal(t, hero.ID, entry.UserID)
		assert.Equal(t, 0, entry.Hours)

		logs, err := app.auditRepo.QueryLogs(context.Background(), audit.QueryFilter{UserID: boss.ID})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "logged 0 hours on 2024-03-02 for hero", logs[0].Message)
	})
}

func Test_hoursApi_query(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin", []string{user.RoleAdmin})
	boss := app.createUser(t, "Boss", "boss", []string{user.RoleSupervisor})
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember}, testutil.WithSupervisor(boss.ID))
	other := app.createUser(t, "Other", "other", []string{user.RoleMember})

	heroMar := testutil.LogHours(t, app.hoursRepo, hero.ID, day(2024, 3, 10), 2)
	heroApr := testutil.LogHours(t, app.hoursRepo, hero.ID, day(2024, 4, 1), 3, hours.ModReading)
	otherMar := testutil.LogHours(t, app.hoursRepo, other.ID, day(2024, 3, 15), 4)

	notFound := marchallObj(t, httpErr{Error: "not found"})
	tests := []httpTest{
		{name: "member sees own", path: "/v1/hours", token: app.token(t, hero), wantData: marchallList(t, heroApr, heroMar)},
		{name: "supervisor sees subordinates", path: "/v1/hours", token: app.token(t, boss), wantData: marchallList(t, heroApr, heroMar)},
		{name: "admin sees all", path: "/v1/hours", token: app.token(t, admin), wantData: marchallList(t, heroApr, otherMar, heroMar)},
		{name: "admin filters user", path: "/v1/hours?user_id=" + other.ID, token: app.token(t, admin), wantData: marchallList(t, otherMar)},
		{name: "member asks for others", path: "/v1/hours?user_id=" + other.ID, token: app.token(t, hero), wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "inclusive range", path: "/v1/hours?from=03/10/2024&to=04/01/2024", token: app.token(t, admin),
			wantData: marchallList(t, heroApr, otherMar, heroMar),
		},
		{name: "from only", path: "/v1/hours?from=03/11/2024", token: app.token(t, admin), wantData: marchallList(t, heroApr, otherMar)},
		{name: "modality", path: "/v1/hours?modality=reading", token: app.token(t, admin), wantData: marchallList(t, heroApr)},
		{
			name: "malformed date", path: "/v1/hours?from=2024-03-01", token: app.token(t, admin), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"from": "malformed date, expected MM/DD/YYYY"}`),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_hoursApi_summary(t *testing.T) {
	app := setup(t)
	boss := app.createUser(t, "Boss", "boss", []string{user.RoleSupervisor})
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember}, testutil.WithSupervisor(boss.ID))

	testutil.LogHours(t, app.hoursRepo, hero.ID, day(2024, 2, 29), 5)
	testutil.LogHours(t, app.hoursRepo, hero.ID, day(2024, 3, 1), 2)
	testutil.LogHours(t, app.hoursRepo, hero.ID, day(2024, 3, 31), 3)
	testutil.LogHours(t, app.hoursRepo, hero.ID, day(2023, 3, 15), 7)

	tests := []httpTest{
		{
			name: "own month", path: "/v1/hours/summary?month=2024-03", token: app.token(t, hero),
			wantData: marchallObj(t, echoapi.SummaryResponse{UserID: hero.ID, Month: "2024-03", Hours: 5}),
		},
		{
			name: "supervisor asks", path: "/v1/hours/summary?month=2024-02&user_id=" + hero.ID, token: app.token(t, boss),
			wantData: marchallObj(t, echoapi.SummaryResponse{UserID: hero.ID, Month: "2024-02", Hours: 5}),
		},
		{
			name: "empty month", path: "/v1/hours/summary?month=2024-05", token: app.token(t, hero),
			wantData: marchallObj(t, echoapi.SummaryResponse{UserID: hero.ID, Month: "2024-05", Hours: 0}),
		},
		{name: "bad month", path: "/v1/hours/summary?month=03/2024", token: app.token(t, hero), wantCode: http.StatusBadRequest},
	}
	runHTTPTests(t, app, tests)
}

func Test_hoursApi_destroy(t *testing.T) {
	app := setup(t)
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember})
	other := app.createUser(t, "Other", "other", []string{user.RoleMember})

	heroEntry := testutil.LogHours(t, app.hoursRepo, hero.ID, day(2024, 3, 10), 2)
	otherEntry := testutil.LogHours(t, app.hoursRepo, other.ID, day(2024, 3, 10), 2)

	tests := []httpTest{
		{
			name: "others' entries are hidden", path: "/v1/hours/" + otherEntry.ID, token: app.token(t, hero),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "entry not found"}),
		},
		{name: "deleted", path: "/v1/hours/" + heroEntry.ID, token: app.token(t, hero), wantCode: http.StatusNoContent},
		{name: "gone", path: "/v1/hours/" + heroEntry.ID, token: app.token(t, hero), wantCode: http.StatusNotFound},
	}
	for i := range tests {
		tests[i].method = http.MethodDelete
	}
	runHTTPTests(t, app, tests)

	_, err := app.hoursRepo.GetEntry(context.Background(), otherEntry.ID)
	assert.NoError(t, err)
}

func Test_hoursApi_import(t *testing.T) {
	app := setup(t)
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember})
	token := app.token(t, hero)

	t.Run("file required", func(t *testing.T) {
		rec := app.do(newUploadRequest(t, "/v1/hours/import", token, "", nil, nil))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"file": "file is required"}`)}, rec)
	})

	t.Run("not a workbook", func(t *testing.T) {
		rec := app.do(newUploadRequest(t, "/v1/hours/import", token, "hours.xlsx", []byte("plain text"), nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no valid rows", func(t *testing.T) {
		book := newBook(t, [][]interface{}{
			{"Date", "Hours", "Description", "Modality"},
			{"13/45/2024", 1, "bad date", "Listening"},
		})
		rec := app.do(newUploadRequest(t, "/v1/hours/import", token, "hours.xlsx", book, nil))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"row 2": "invalid date: 13/45/2024"}`)}, rec)
	})

	t.Run("imported", func(t *testing.T) {
		book := newBook(t, [][]interface{}{
			{"Date", "Hours", "Description", "Modality"},
			{"03/01/2024", 2, "news broadcast", "Listening, Reading"},
			{},
			{"2024-03-04", 1, "flash cards", "vocabulary"},
			{"03/05/2024", 30, "too long", "Listening"},
		})
		rec := app.do(newUploadRequest(t, "/v1/hours/import", token, "hours.xlsx", book, nil))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp echoapi.ImportResponse
		decode(t, rec, &resp)
		require.Len(t, resp.Imported, 2)
		assert.Equal(t, 1, resp.Skipped)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, 5, resp.Errors[0].Row)

		entries, err := app.hoursRepo.QueryEntries(context.Background(), hours.QueryFilter{UserID: hero.ID})
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		total, err := app.hoursRepo.SumHours(context.Background(), hero.ID, day(2024, 3, 1), day(2024, 3, 31))
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})
}

func Test_hoursApi_export(t *testing.T) {
	app := setup(t)
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember})
	testutil.LogHours(t, app.hoursRepo, hero.ID, day(2024, 3, 10), 2)
	testutil.LogHours(t, app.hoursRepo, hero.ID, day(2024, 4, 1), 3, hours.ModReading, hours.ModListening)

	rec := app.do(newAuthRequest(http.MethodGet, "/v1/hours/export?from=04/01/2024", app.token(t, hero)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "hours.xlsx")

	// the export reads back as an import
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(workbook.DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Date", "Hours", "Modality", "Description"}, rows[0])

	res, err := workbook.Read(bytes.NewReader(rec.Body.Bytes()), "")
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.True(t, day(2024, 4, 1).Equal(res.Entries[0].Date))
	assert.Equal(t, []string{hours.ModReading, hours.ModListening}, res.Entries[0].Modalities)
}
