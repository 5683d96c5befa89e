package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditHandler_List_Filters(t *testing.T) {
	api := newTestAPI(t)
	api.createClient(t, "Acme")
	w := api.do(t, http.MethodPost, "/api/v1/system/wipe", "staff", nil)
	testutil.AssertErrorResponse(t, w, http.StatusForbidden)

	w = api.do(t, http.MethodGet, "/api/v1/audit", "staff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, w), 2)
	assert.EqualValues(t, 2, meta(t, w)["total"])

	w = api.do(t, http.MethodGet, "/api/v1/audit?status=failure", "staff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	failures := dataList(t, w)
	require.Len(t, failures, 1)
	entry := failures[0].(map[string]any)
	assert.Equal(t, audit.ActionAccessDenied, entry["action"])
	assert.Equal(t, "staff", entry["actor_id"])
	assert.Equal(t, "USER", entry["actor_type"])

	w = api.do(t, http.MethodGet, "/api/v1/audit?entity_type=Client", "staff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, w), 1)

	w = api.do(t, http.MethodGet, "/api/v1/audit?status=bogus", "staff", nil)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest)
}

func TestAuditHandler_List_Paging(t *testing.T) {
	api := newTestAPI(t)
	for _, name := range []string{"A", "B", "C"} {
		api.createClient(t, name)
	}

	w := api.do(t, http.MethodGet, "/api/v1/audit?page=2&page_size=2", "staff", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, w), 1)
	m := meta(t, w)
	assert.EqualValues(t, 3, m["total"])
	assert.EqualValues(t, 2, m["page"])
	assert.EqualValues(t, 2, m["total_pages"])
}

func TestAuditHandler_Append(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/audit", "staff", map[string]any{
		"action":      "Report Exported",
		"entity_type": "Invoice",
		"status":      "SUCCESS",
		"description": "Exported the June ledger",
	})

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	entries := api.auditEntries(t, "Report Exported")
	require.Len(t, entries, 1)
	assert.Equal(t, "N/A", entries[0].EntityID)
	assert.Equal(t, "staff", entries[0].ActorID)
	assert.WithinDuration(t, testutil.ReferenceTime, entries[0].Timestamp, time.Second)
}

func TestAuditHandler_Append_Validation(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/audit", "staff", map[string]any{
		"action":      "Report Exported",
		"entity_type": "Invoice",
		"status":      "MAYBE",
	})
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest)

	w = api.do(t, http.MethodPost, "/api/v1/audit", "", map[string]any{
		"action":      "Report Exported",
		"entity_type": "Invoice",
		"status":      "SUCCESS",
	})
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized)
	assert.Empty(t, api.auditEntries(t, "Report Exported"))
}
