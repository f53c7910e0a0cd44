package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consolidatehandler "kpi-dashboard/http-server/consolidate"
	"kpi-dashboard/internal/config"
	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/service/analytics"
	"kpi-dashboard/internal/service/consolidate"
	excelsvc "kpi-dashboard/internal/service/generate-excel"
	"kpi-dashboard/internal/service/roster"
	"kpi-dashboard/internal/session"
	"kpi-dashboard/internal/storage/sqlstore"
)

const rosterCSV = "Operator,Coordinator,Start_Date,End_Date,Shift,Machine\n" +
	"Ana,LC_1,01/02/2025,28/02/2025,S1,KDF-7\n"

func testServer(t *testing.T, source string) http.Handler {
	t.Helper()

	store, err := sqlstore.Open(sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte(rosterCSV), 0o644))

	cfg := config.Config{
		Env:         envLocal,
		HTTPServer:  config.HTTPServer{MaxUploadMB: 8},
		Roster:      config.Roster{Source: source, Path: path},
		AdminLogin:  "admin",
		AdminPass:   "secret",
		CORSOrigins: []string{"http://localhost:5173"},
	}

	var src consolidate.RosterSource = roster.FileSource{Path: path}
	if source == "db" {
		src = roster.StoreSource{Storage: store}
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewStore()

	return routes(cfg, log, deps{
		storage:      store,
		roster:       src,
		consolidator: consolidate.NewService(log, src, consolidate.DefaultOptions()),
		sessions:     sessions,
		excel:        excelsvc.NewGenerateService(sessions),
		expectedFrom: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		expectedTo:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
	})
}

func TestRoutes_ConsolidateAndQuery(t *testing.T) {
	h := testServer(t, "file")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("KDF-7/MTBF", "MTBF_feb.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("meta\nmeta\nShift,MTBF\nS1 03-02-2025,120\nS2 03-02-2025,95\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/consolidate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp consolidatehandler.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.RowCounts[constants.MTBF])

	base := "/api/sessions/" + resp.SessionID
	for _, target := range []string{base, base + "/reports", base + "/analytics/MTBF", base + "/completeness/MTBF", base + "/export"} {
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusOK, rr.Code, target)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, base+"/completeness/MTBF", nil))
	var completeness analytics.Completeness
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &completeness))
	assert.Equal(t, 28, completeness.ExpectedDays)
	assert.Equal(t, 1, completeness.DaysWithData)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRoutes_Admin(t *testing.T) {
	h := testServer(t, "file")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/roster", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/roster", nil)
	req.SetBasicAuth("admin", "secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"operator":"Ana"`)

	req = httptest.NewRequest(http.MethodPut, "/api/admin/roster", bytes.NewBufferString(`{"rules":[]}`))
	req.SetBasicAuth("admin", "secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRoutes_AdminDatabaseRoster(t *testing.T) {
	h := testServer(t, "db")

	body := `{"rules":[{"operator":"Luis","coordinator":"LC_2","start":"2025-02-01","end":"2025-02-28","shift":"S2","machine":"KDF-8"}]}`
	req := httptest.NewRequest(http.MethodPut, "/api/admin/roster", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("admin", "secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/admin/roster", nil)
	req.SetBasicAuth("admin", "secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"operator":"Luis"`)
	assert.Contains(t, rr.Body.String(), `"source":"database"`)
}

func TestRoutes_Indicators(t *testing.T) {
	rr := httptest.NewRecorder()
	testServer(t, "file").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/indicators", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Strategic PR")
}
