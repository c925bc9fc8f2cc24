package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize())

	assert.Equal(t, "Tu carrito está vacío", T("es", KeyCartEmpty))
	assert.Equal(t, "Your cart is empty", T("en", KeyCartEmpty))
	assert.Equal(t, "Insufficient stock for: Camisa, Gorra", T("en", KeyProductInsufficientStock, "Camisa, Gorra"))

	// unknown language falls back to Spanish, unknown key to itself
	assert.Equal(t, "Pedido no encontrado", T("fr", KeyOrderNotFound))
	assert.Equal(t, "missing.key", T("en", "missing.key"))

	assert.Equal(t, []string{"en", "es"}, GetSupportedLanguages())
	assert.True(t, IsSupported("en"))
	assert.False(t, IsSupported("zh_TW"))
}

func TestLocalesDefineSameKeys(t *testing.T) {
	require.NoError(t, Initialize())

	es := instance.translations["es"]
	en := instance.translations["en"]
	for key := range es {
		assert.Contains(t, en, key)
	}
	for key := range en {
		assert.Contains(t, es, key)
	}
}
