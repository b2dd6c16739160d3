package possync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewProductMapping(t *testing.T) {
	tenantID := uuid.New()
	itemID := uuid.New()

	t.Run("valid mapping", func(t *testing.T) {
		mapping, err := NewProductMapping(tenantID, ProviderCodeSquare, itemID, "SQ-OBJ-001")
		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, mapping.ID)
		assert.Equal(t, "SQ-OBJ-001", mapping.ProviderObjectID)
		assert.Nil(t, mapping.LastReconciledAt)
		assert.NoError(t, mapping.Validate())
	})

	t.Run("rejects nil tenant", func(t *testing.T) {
		_, err := NewProductMapping(uuid.Nil, ProviderCodeSquare, itemID, "SQ-OBJ-001")
		assert.ErrorIs(t, err, ErrInvalidTenantID)
	})

	t.Run("rejects nil item", func(t *testing.T) {
		_, err := NewProductMapping(tenantID, ProviderCodeSquare, uuid.Nil, "SQ-OBJ-001")
		assert.ErrorIs(t, err, ErrInvalidItemID)
	})

	t.Run("rejects empty provider object ID", func(t *testing.T) {
		_, err := NewProductMapping(tenantID, ProviderCodeSquare, itemID, "")
		assert.ErrorIs(t, err, ErrInvalidProviderObjectID)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		_, err := NewProductMapping(tenantID, ProviderCode("NCR"), itemID, "OBJ-1")
		assert.ErrorIs(t, err, ErrInvalidProviderCode)
	})
}

func TestProductMapping_RecordReconciled(t *testing.T) {
	mapping, err := NewProductMapping(uuid.New(), ProviderCodeClover, uuid.New(), "CLV-9")
	assert.NoError(t, err)

	at := mapping.CreatedAt.Add(1)
	mapping.RecordReconciled(at)

	assert.NotNil(t, mapping.LastReconciledAt)
	assert.Equal(t, at, *mapping.LastReconciledAt)
}
