package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LLM_PROVIDER", "GOOGLE_API_KEY", "OPENAI_API_KEY", "YANDEX_OAUTH_TOKEN",
		"YANDEX_FOLDER_ID", "CHAT_STORE_BACKEND", "TYPING_DELAY", "CHAT_STORAGE",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_DefaultsWithGeminiKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderGemini, cfg.LLMProvider)
	require.Equal(t, "gemini-1.5-pro-latest", cfg.Model())
	require.Equal(t, BackendFile, cfg.ChatStoreBackend)
	require.Equal(t, 20*time.Millisecond, cfg.TypingDelay)
	require.Equal(t, "0 21 * * *", cfg.ReportSchedule)
}

func TestLoad_MissingCredentialIsFatal(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingCredential)

	t.Setenv("LLM_PROVIDER", "openai")
	_, err = Load()
	require.ErrorIs(t, err, ErrMissingCredential)

	t.Setenv("LLM_PROVIDER", "yandex")
	t.Setenv("YANDEX_OAUTH_TOKEN", "tok")
	_, err = Load()
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	cfg := &Config{LLMProvider: "mystery", ChatStoreBackend: BackendFile}
	require.Error(t, cfg.Validate())

	cfg = &Config{LLMProvider: " OpenAI ", OpenAIAPIKey: "k", ChatStoreBackend: "redis"}
	require.Error(t, cfg.Validate())
	require.Equal(t, ProviderOpenAI, cfg.LLMProvider)

	cfg = &Config{LLMProvider: ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "m", ChatStoreBackend: BackendSQLite}
	require.NoError(t, cfg.Validate())
	require.Equal(t, "m", cfg.Model())
}
