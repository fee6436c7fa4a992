package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Credentials holds the resolved secret material the core needs to talk
// to its external services. Values come from the environment, never from
// the TOML document, so they never round-trip through Clone/Reload.
type Credentials struct {
	OpenAIAPIKey            string
	YouTubeAPIKey           string
	GCPProjectID            string
	GoogleServiceAccountPath string
	AssemblyAIAPIKey        string
	SlackBotToken           string
	ZepAPIKey               string
}

// ErrMissingCredential reports an unset required environment variable.
type ErrMissingCredential struct {
	Variable string
}

func (e *ErrMissingCredential) Error() string {
	return fmt.Sprintf("config: required environment variable %s is not set", e.Variable)
}

// requireEnv reads a required environment variable, matching the core's
// get_required_env_var: fail fast at startup rather than surface a
// confusing error from deep inside a dispatcher.
func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", &ErrMissingCredential{Variable: name}
	}
	return v, nil
}

// ResolveCredentials reads every required and optional credential from the
// process environment. Exactly one of GOOGLE_SERVICE_ACCOUNT_PATH and
// GOOGLE_APPLICATION_CREDENTIALS must be set and must name a file that
// exists on disk; the others are each independently required, except
// ASSEMBLYAI_API_KEY, SLACK_BOT_TOKEN, and ZEP_API_KEY which are optional.
func ResolveCredentials() (*Credentials, error) {
	c := &Credentials{}
	var err error

	if c.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if c.YouTubeAPIKey, err = requireEnv("YOUTUBE_API_KEY"); err != nil {
		return nil, err
	}
	if c.GCPProjectID, err = requireEnv("GCP_PROJECT_ID"); err != nil {
		return nil, err
	}

	saPath, err := resolveServiceAccountPath()
	if err != nil {
		return nil, err
	}
	c.GoogleServiceAccountPath = saPath

	c.AssemblyAIAPIKey = os.Getenv("ASSEMBLYAI_API_KEY")
	c.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	c.ZepAPIKey = os.Getenv("ZEP_API_KEY")

	return c, nil
}

// resolveServiceAccountPath picks whichever of GOOGLE_SERVICE_ACCOUNT_PATH
// and GOOGLE_APPLICATION_CREDENTIALS is set (they are treated as aliases
// for the same setting), verifies the file it names exists, and returns
// its path.
func resolveServiceAccountPath() (string, error) {
	path := os.Getenv("GOOGLE_SERVICE_ACCOUNT_PATH")
	if path == "" {
		path = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if path == "" {
		return "", &ErrMissingCredential{Variable: "GOOGLE_SERVICE_ACCOUNT_PATH"}
	}

	path = ExpandHome(path)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("config: service account credential file %s: %w", path, err)
	}
	return path, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
