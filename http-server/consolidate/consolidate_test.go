package consolidate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/service/consolidate"
	"kpi-dashboard/internal/session"
	"kpi-dashboard/internal/storage"
)

type MockConsolidator struct {
	mock.Mock
}

func (m *MockConsolidator) Consolidate(ctx context.Context, uploads []consolidate.Upload) (*storage.ConsolidatedDataset, error) {
	args := m.Called(ctx, uploads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ConsolidatedDataset), args.Error(1)
}

type MockSessionCreator struct {
	mock.Mock
}

func (m *MockSessionCreator) Create(ds *storage.ConsolidatedDataset) (*session.Entry, error) {
	args := m.Called(ds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Entry), args.Error(1)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestConsolidate_Success(t *testing.T) {
	cons := new(MockConsolidator)
	sessions := new(MockSessionCreator)

	ds := &storage.ConsolidatedDataset{
		Tables:  map[string][]storage.IndicatorRecord{constants.MTBF: {{Indicator: constants.MTBF}}},
		Reports: []storage.FileReport{{Machine: "KDF-7", Indicator: constants.MTBF, Filename: "MTBF.csv"}},
	}

	cons.On("Consolidate", mock.Anything, mock.MatchedBy(func(u []consolidate.Upload) bool {
		return len(u) == 2 &&
			u[0].Machine == "KDF-7" && u[0].Indicator == constants.MTBF && string(u[0].Content) == "mtbf" &&
			u[1].Machine == "KDF-8" && u[1].Indicator == constants.RejectRate && u[1].Filename == "RejectRate.csv"
	})).Return(ds, nil)
	loaded := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	sessions.On("Create", ds).Return(&session.Entry{ID: "sess-1", Dataset: ds, LoadedAt: loaded}, nil)

	body, contentType := multipartBody(t, map[string][2]string{
		"KDF-8/RejectRate": {"RejectRate.csv", "reject"},
		"KDF-7/MTBF":       {"MTBF.csv", "mtbf"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/consolidate", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	Consolidate(discard, cons, sessions, 1<<20).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, 1, resp.RowCounts[constants.MTBF])
	assert.Len(t, resp.Reports, 1)

	cons.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestConsolidate_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		files map[string][2]string
		want  string
	}{
		{name: "no files", files: map[string][2]string{}, want: "no files uploaded"},
		{name: "field without indicator", files: map[string][2]string{"KDF-7": {"MTBF.csv", "x"}}, want: "must be named"},
		{name: "unknown indicator", files: map[string][2]string{"KDF-7/OEE": {"OEE.csv", "x"}}, want: "unknown indicator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cons := new(MockConsolidator)
			sessions := new(MockSessionCreator)

			body, contentType := multipartBody(t, tt.files)
			req := httptest.NewRequest(http.MethodPost, "/api/consolidate", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()

			Consolidate(discard, cons, sessions, 1<<20).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
			cons.AssertNotCalled(t, "Consolidate")
		})
	}
}

func TestConsolidate_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/consolidate", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	Consolidate(discard, new(MockConsolidator), new(MockSessionCreator), 1<<20).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestConsolidate_RosterFailure(t *testing.T) {
	cons := new(MockConsolidator)
	sessions := new(MockSessionCreator)
	cons.On("Consolidate", mock.Anything, mock.Anything).
		Return(nil, storage.NewError(storage.KindRosterLoad, "overlapping roster assignments"))

	body, contentType := multipartBody(t, map[string][2]string{"KDF-7/MTBF": {"MTBF.csv", "x"}})
	req := httptest.NewRequest(http.MethodPost, "/api/consolidate", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	Consolidate(discard, cons, sessions, 1<<20).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "overlapping")
	sessions.AssertNotCalled(t, "Create", mock.Anything)
}

func TestConsolidate_InternalError(t *testing.T) {
	cons := new(MockConsolidator)
	cons.On("Consolidate", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	body, contentType := multipartBody(t, map[string][2]string{"KDF-7/MTBF": {"MTBF.csv", "x"}})
	req := httptest.NewRequest(http.MethodPost, "/api/consolidate", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	Consolidate(discard, cons, new(MockSessionCreator), 1<<20).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
