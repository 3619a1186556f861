package fixture_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/galley/internal/controller"
	"github.com/five82/galley/internal/fixture"
	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/ledger"
	"github.com/five82/galley/internal/schema"
)

func newServer(t *testing.T, opts ...fixture.Option) (*fixture.Server, *httptest.Server, schema.Set) {
	t.Helper()
	set, err := schema.Default()
	require.NoError(t, err)
	fx := fixture.New(set, opts...)
	ts := httptest.NewServer(fx.Handler())
	t.Cleanup(ts.Close)
	return fx, ts, set
}

func TestHealthz(t *testing.T) {
	_, ts, _ := newServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestList_FiltersByQuery(t *testing.T) {
	_, ts, _ := newServer(t)
	resp, err := http.Get(ts.URL + "/api/employees/list?account=A200")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		List []map[string]any `json:"list"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.List, 2)
	for _, row := range body.List {
		assert.Equal(t, "A200", row["account"])
	}
}

func TestList_UnknownGrid(t *testing.T) {
	_, ts, _ := newServer(t)
	resp, err := http.Get(ts.URL + "/api/nope/list")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSave_RejectsMissingIdentity(t *testing.T) {
	fx, ts, _ := newServer(t)
	before := fx.Rows("meals")

	resp, err := http.Post(ts.URL+"/api/meals/save", "application/json",
		strings.NewReader(`{"changes":[{"day":1,"lunch":50},{"lunch":60}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var reply struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Message, "missing day")
	assert.Equal(t, before, fx.Rows("meals"), "a rejected save applies nothing")
	assert.Zero(t, fx.SaveCount("meals"))
}

func TestSave_RequiresToken(t *testing.T) {
	_, ts, _ := newServer(t, fixture.WithToken("s3cret"))

	resp, err := http.Get(ts.URL + "/api/accounts/list")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/accounts/list", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "healthz is open")
}

func TestLedger_EveryEnvelopeDecodes(t *testing.T) {
	_, ts, set := newServer(t)
	client, err := ledger.NewClient(ts.URL)
	require.NoError(t, err)

	for _, def := range set.Grids {
		t.Run(def.Name, func(t *testing.T) {
			rows, err := client.Source(def).FetchRows(context.Background(), def.DefaultFilter())
			require.NoError(t, err)
			assert.NotEmpty(t, rows, "seeded grid %s returned no rows", def.Name)
		})
	}
}

func TestEndToEnd_EditSaveRefetch(t *testing.T) {
	fx, ts, set := newServer(t)
	client, err := ledger.NewClient(ts.URL, ledger.WithTimeout(2*time.Second))
	require.NoError(t, err)
	def, ok := set.Lookup("meals")
	require.True(t, ok)

	ctl, err := controller.New(def.Schema(), client.Source(def), controller.WithSavePolicy(controller.SaveRefetch))
	require.NoError(t, err)
	t.Cleanup(ctl.Close)

	ctx := context.Background()
	res, err := ctl.SetFilter(ctx, grid.Filter{"account": "A100", "year": "2024", "month": "5"})
	require.NoError(t, err)
	require.Equal(t, 10, res.Rows)

	// Same value with a thousands separator is not a change.
	lunch := grid.NormalizeNumeric(ctl.WorkingRows()[0]["lunch"])
	require.NoError(t, ctl.EditCell(0, "lunch", " "+grid.NormalizeText(lunch)+" "))
	require.NoError(t, ctl.EditCell(2, "lunch", "1,250"))
	require.NoError(t, ctl.EditCell(2, "note", "  event   day "))
	require.Len(t, ctl.ChangeSet(), 1)

	saved, err := ctl.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, controller.OutcomeSaved, saved.Outcome)
	assert.True(t, saved.Refetched)
	assert.Equal(t, 1, fx.SaveCount("meals"))

	assert.Empty(t, ctl.ChangeSet(), "refetched grid is clean")
	row := ctl.WorkingRows()[2]
	assert.Equal(t, float64(1250), grid.NormalizeNumeric(row["lunch"]))
	assert.Equal(t, "event day", grid.NormalizeText(row["note"]))

	var stored grid.Row
	for _, r := range fx.Rows("meals") {
		if grid.NormalizeText(r["day"]) == "3" && r["account"] == "A100" {
			stored = r
		}
	}
	require.NotNil(t, stored)
	assert.Equal(t, float64(1250), stored["lunch"])
	assert.Equal(t, "A100", stored["account"], "carry fields ride along")
}

func TestEndToEnd_NewRowIsInserted(t *testing.T) {
	fx, ts, set := newServer(t)
	client, err := ledger.NewClient(ts.URL)
	require.NoError(t, err)
	def, _ := set.Lookup("employees")

	ctl, err := controller.New(def.Schema(), client.Source(def))
	require.NoError(t, err)
	t.Cleanup(ctl.Close)

	ctx := context.Background()
	_, err = ctl.SetFilter(ctx, grid.Filter{"account": "A200"})
	require.NoError(t, err)

	idx, err := ctl.AddRow(grid.Row{"employee_id": "E777", "account": "A200"})
	require.NoError(t, err)
	require.NoError(t, ctl.EditCell(idx, "name", "Yoon Ara"))

	res, err := ctl.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)

	before := len(fixture.Seed()["employees"])
	assert.Len(t, fx.Rows("employees"), before+1)
}
