package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uga-libraries/aip-aptrust/pipeline"
	"github.com/uga-libraries/aip-aptrust/report"
)

// stubStore serves canned rows in place of a database.
type stubStore struct {
	outcomes map[string][]report.OutcomeRow
	renames  map[string][]report.RenameRow
}

func (s *stubStore) SaveResult(batchID string, res *pipeline.Result) error { return nil }

func (s *stubStore) Outcomes(batchID string) ([]report.OutcomeRow, error) {
	if batchID == "" {
		var all []report.OutcomeRow
		for _, rows := range s.outcomes {
			all = append(all, rows...)
		}
		return all, nil
	}
	return s.outcomes[batchID], nil
}

func (s *stubStore) Renames(packageID string) ([]report.RenameRow, error) {
	return s.renames[packageID], nil
}

func (s *stubStore) Close() error { return nil }

func testServer() *StatusServer {
	return &StatusServer{Store: &stubStore{
		outcomes: map[string][]report.OutcomeRow{
			"batch-a": {
				{BatchID: "batch-a", PackageID: "demo_001", State: "Done", When: time.Now()},
				{BatchID: "batch-a", PackageID: "demo_002", State: "Failed", Category: "bag-invalid", When: time.Now()},
			},
			"batch-b": {
				{BatchID: "batch-b", PackageID: "demo_003", State: "Done", When: time.Now()},
			},
		},
		renames: map[string][]report.RenameRow{
			"demo_001": {
				{PackageID: "demo_001", OldPath: "a/b\tc.txt", NewPath: "a/b_c.txt", Reasons: "name contains a control character"},
			},
		},
	}}
}

func doGet(t *testing.T, s *StatusServer, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.addRoutes().ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestWelcome(t *testing.T) {
	w := doGet(t, testServer(), "/")
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "AIP-to-APTrust")
}

func TestOutcomesByBatch(t *testing.T) {
	w := doGet(t, testServer(), "/outcomes/batch-a")
	require.Equal(t, 200, w.Code)
	var rows []report.OutcomeRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "demo_001", rows[0].PackageID)
}

func TestOutcomesAll(t *testing.T) {
	w := doGet(t, testServer(), "/outcomes")
	require.Equal(t, 200, w.Code)
	var rows []report.OutcomeRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 3)
}

func TestRenames(t *testing.T) {
	w := doGet(t, testServer(), "/renames/demo_001")
	require.Equal(t, 200, w.Code)
	var rows []report.RenameRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "a/b_c.txt", rows[0].NewPath)

	w = doGet(t, testServer(), "/renames/unknown")
	require.Equal(t, 200, w.Code)
	require.Equal(t, "null\n", w.Body.String())
}
