package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize("en"))

	assert.Equal(t, []string{"en", "zh_TW"}, GetSupportedLanguages())
	assert.Equal(t, "Authentication required", T("en", KeyAuthRequired))
	assert.Equal(t, "需要登入", T("zh_TW", KeyAuthRequired))
	assert.Equal(t, "Invalid input", T("en", KeyValidationInvalid, "input"))
}

func TestFallbacks(t *testing.T) {
	require.NoError(t, Initialize("en"))

	assert.Equal(t, "Permission denied", T("fr", KeyAccessDenied))
	assert.Equal(t, "missing.key", T("en", "missing.key"))
}

func TestEveryKeyIsTranslated(t *testing.T) {
	require.NoError(t, Initialize("en"))

	keys := []string{
		KeySuccess, KeyNotFound, KeyInternalError, KeyRateLimited,
		KeyAuthRequired, KeyAuthInvalidToken, KeyAuthTokenExpired, KeyAuthInvalidCredentials,
		KeyAuthLoginSuccess, KeyAuthRegisterSuccess, KeyAccessDenied, KeyValidationInvalid,
		KeyUserUpdated, KeyUserDeleted, KeyProductCreated, KeyProductUpdated, KeyProductDeleted,
		KeyCategoryCreated, KeyCategoryUpdated, KeyCategoryDeleted,
		KeyBidCreated, KeyBidUpdated, KeyBidDeleted, KeySaleCreated,
	}

	for _, lang := range GetSupportedLanguages() {
		for _, key := range keys {
			_, ok := instance.lookup(lang, key)
			assert.True(t, ok, "%s missing in %s", key, lang)
		}
	}
}
