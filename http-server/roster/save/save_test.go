package save

import (
	"bytes"
	"context"
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

	"kpi-dashboard/internal/storage"
)

type MockRosterReplacer struct {
	mock.Mock
}

func (m *MockRosterReplacer) ReplaceRoster(ctx context.Context, rules []storage.AssignmentRule) error {
	return m.Called(ctx, rules).Error(0)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func putJSON(t *testing.T, store RosterReplacer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/api/admin/roster", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	SaveRoster(discard, store, 1<<20).ServeHTTP(rr, req)
	return rr
}

func TestSaveRoster_JSON(t *testing.T) {
	store := new(MockRosterReplacer)
	store.On("ReplaceRoster", mock.Anything, mock.MatchedBy(func(rules []storage.AssignmentRule) bool {
		return len(rules) == 2 &&
			rules[0].Start.Equal(time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)) &&
			rules[1].Shift == "S2"
	})).Return(nil)

	rr := putJSON(t, store, `{"rules":[
		{"operator":"Ana","coordinator":"LC_1","start":"2025-01-13","end":"2025-06-30","shift":"S1","machine":"KDF-7"},
		{"operator":"Luis","coordinator":"LC_1","start":"2025-01-13","end":"2025-06-30","shift":"s2","machine":"KDF-7"}
	]}`)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"rules":2`)
	store.AssertExpectations(t)
}

func TestSaveRoster_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad json", body: `{"rules":`, want: "invalid JSON"},
		{name: "bad date", body: `{"rules":[{"operator":"Ana","coordinator":"LC_1","start":"13/01/2025","end":"2025-06-30","shift":"S1","machine":"KDF-7"}]}`, want: "invalid start date"},
		{name: "bad shift", body: `{"rules":[{"operator":"Ana","coordinator":"LC_1","start":"2025-01-13","end":"2025-06-30","shift":"S4","machine":"KDF-7"}]}`, want: "invalid roster rule 1"},
		{
			name: "overlap",
			body: `{"rules":[
				{"operator":"Ana","coordinator":"LC_1","start":"2025-01-13","end":"2025-06-30","shift":"S1","machine":"KDF-7"},
				{"operator":"Luis","coordinator":"LC_1","start":"2025-06-01","end":"2025-07-30","shift":"S1","machine":"KDF-7"}
			]}`,
			want: "overlapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockRosterReplacer)
			rr := putJSON(t, store, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
			store.AssertNotCalled(t, "ReplaceRoster", mock.Anything, mock.Anything)
		})
	}
}

func TestSaveRoster_File(t *testing.T) {
	store := new(MockRosterReplacer)
	store.On("ReplaceRoster", mock.Anything, mock.MatchedBy(func(rules []storage.AssignmentRule) bool {
		return len(rules) == 1 && rules[0].Operator == "Marta" && rules[0].Machine == "KDF-9"
	})).Return(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "roster.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Operador,Coordinador,Fecha_Inicio,Fecha_Fin,Turno,Máquina\nMarta,LC_2,13/01/2025,30/06/2025,S3,KDF-9\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/admin/roster", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	SaveRoster(discard, store, 1<<20).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	store.AssertExpectations(t)
}

func TestSaveRoster_StorageError(t *testing.T) {
	store := new(MockRosterReplacer)
	store.On("ReplaceRoster", mock.Anything, mock.Anything).Return(errors.New("db down"))

	rr := putJSON(t, store, `{"rules":[]}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
