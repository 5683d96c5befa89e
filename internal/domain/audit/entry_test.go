package audit

import (
	"testing"
	"time"

	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_Stamp(t *testing.T) {
	at := time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC)

	t.Run("stamps a system draft", func(t *testing.T) {
		draft := DraftFor(identity.SystemActor(identity.SystemActorInvoiceBot), ActionInvoiceGenerated, StatusSuccess).
			On(EntityInvoice, "INV-20250201-555").
			Describe("Auto-generated invoice for order ORD-1")

		entry, err := draft.Stamp(at)

		require.NoError(t, err)
		assert.Equal(t, at, entry.Timestamp)
		assert.Equal(t, identity.ActorTypeSystem, entry.ActorType)
		assert.Equal(t, identity.SystemActorInvoiceBot, entry.ActorID)
		assert.Equal(t, "INV-20250201-555", entry.EntityID)
		assert.NotEqual(t, "", entry.ID.String())
	})

	t.Run("anonymous actor defaults to user type", func(t *testing.T) {
		entry, err := DraftFor(identity.Actor{Username: "someone"}, ActionLoginFailed, StatusFailure).Stamp(at)

		require.NoError(t, err)
		assert.Equal(t, identity.ActorTypeUser, entry.ActorType)
		assert.Equal(t, "someone", entry.ActorID)
	})

	t.Run("rejects unknown status and missing action", func(t *testing.T) {
		_, err := Draft{ActorType: identity.ActorTypeUser, Status: Status("INFO")}.Stamp(at)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Len(t, de.Fields, 2)
	})
}
