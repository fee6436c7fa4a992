package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setBaseCredentialEnv(t *testing.T, serviceAccountPath string) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("YOUTUBE_API_KEY", "yt-test")
	t.Setenv("GCP_PROJECT_ID", "proj-test")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_PATH", serviceAccountPath)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
}

func TestResolveCredentialsSuccess(t *testing.T) {
	dir := t.TempDir()
	saPath := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(saPath, []byte("{}"), 0o600); err != nil {
		t.Fatalf("failed to write service account file: %v", err)
	}
	setBaseCredentialEnv(t, saPath)
	t.Setenv("ASSEMBLYAI_API_KEY", "")
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("ZEP_API_KEY", "")

	creds, err := ResolveCredentials()
	if err != nil {
		t.Fatalf("ResolveCredentials failed: %v", err)
	}
	if creds.OpenAIAPIKey != "sk-test" {
		t.Errorf("unexpected OpenAI key: %q", creds.OpenAIAPIKey)
	}
	if creds.GoogleServiceAccountPath != saPath {
		t.Errorf("unexpected service account path: %q", creds.GoogleServiceAccountPath)
	}
	if creds.AssemblyAIAPIKey != "" {
		t.Errorf("expected empty optional credential, got %q", creds.AssemblyAIAPIKey)
	}
}

func TestResolveCredentialsMissingRequired(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("YOUTUBE_API_KEY", "yt-test")
	t.Setenv("GCP_PROJECT_ID", "proj-test")

	if _, err := ResolveCredentials(); err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is unset")
	}
}

func TestResolveCredentialsAcceptsGoogleApplicationCredentialsAlias(t *testing.T) {
	dir := t.TempDir()
	saPath := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(saPath, []byte("{}"), 0o600); err != nil {
		t.Fatalf("failed to write service account file: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("YOUTUBE_API_KEY", "yt-test")
	t.Setenv("GCP_PROJECT_ID", "proj-test")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", saPath)

	creds, err := ResolveCredentials()
	if err != nil {
		t.Fatalf("ResolveCredentials failed: %v", err)
	}
	if creds.GoogleServiceAccountPath != saPath {
		t.Errorf("expected alias to resolve, got %q", creds.GoogleServiceAccountPath)
	}
}

func TestResolveCredentialsRejectsNonexistentServiceAccountFile(t *testing.T) {
	setBaseCredentialEnv(t, filepath.Join(t.TempDir(), "missing.json"))

	if _, err := ResolveCredentials(); err == nil {
		t.Fatal("expected error for nonexistent service account file")
	}
}
