package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./harmoniq.db" {
			t.Errorf("expected database path ./harmoniq.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Tidal.Scopes != "r_usr w_usr" {
			t.Errorf("expected scopes 'r_usr w_usr', got %q", config.Tidal.Scopes)
		}

		if config.Tidal.TokenURL != "https://auth.tidal.com/v1/oauth2/token" {
			t.Errorf("unexpected token url %s", config.Tidal.TokenURL)
		}

		if config.Tidal.APIBaseURL != "https://openapi.tidal.com/v2" {
			t.Errorf("unexpected api base url %s", config.Tidal.APIBaseURL)
		}

		if config.Tidal.ClientID != "" {
			t.Errorf("expected empty client id in template, got %s", config.Tidal.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("Overrides File Values And Keeps Defaults", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[tidal]
client_id = "test_client_id"
client_secret = "test_secret"
request_timeout_seconds = 3
`
			if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if config.Database.Path != "/custom/path.db" {
				t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
			}
			if config.Server.Addr() != "0.0.0.0:8080" {
				t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
			}
			if config.Tidal.ClientID != "test_client_id" {
				t.Errorf("expected client_id test_client_id, got %s", config.Tidal.ClientID)
			}
			if config.Tidal.AuthorizeURL != "https://login.tidal.com/authorize" {
				t.Errorf("expected default authorize url to survive, got %s", config.Tidal.AuthorizeURL)
			}
			if config.Tidal.Timeout() != 3*time.Second {
				t.Errorf("expected 3s timeout, got %v", config.Tidal.Timeout())
			}
		})

		t.Run("Missing File", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
				t.Error("expected error for missing file")
			}
		})

		t.Run("Invalid TOML", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(configPath, []byte("[tidal\nclient_id = "), 0644)

			if _, err := LoadConfig(configPath); err == nil {
				t.Error("expected parse error")
			}
		})
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"TIDAL_CLIENT_ID":     "env-id",
			"TIDAL_CLIENT_SECRET": " env-secret ",
			"TIDAL_AUTH":          "https://tokens.example.com/token",
			"TIDAL_SCOPES":        "user.read playlists.read",
			"HARMONIQ_PORT":       "9090",
			"TIDAL_REDIRECT_URI":  "",
		}
		lookup := func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}

		config := DefaultConfig()
		if err := config.ApplyEnv(lookup); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.Tidal.ClientID != "env-id" {
			t.Errorf("expected env-id, got %s", config.Tidal.ClientID)
		}
		if config.Tidal.ClientSecret != "env-secret" {
			t.Errorf("expected trimmed secret, got %q", config.Tidal.ClientSecret)
		}
		if config.Tidal.TokenURL != "https://tokens.example.com/token" {
			t.Errorf("expected TIDAL_AUTH to set the token url, got %s", config.Tidal.TokenURL)
		}
		if config.Tidal.Scopes != "user.read playlists.read" {
			t.Errorf("unexpected scopes %s", config.Tidal.Scopes)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", config.Server.Port)
		}
		if config.Tidal.RedirectURI != "http://localhost:3000/auth/callback" {
			t.Errorf("empty env value should not clear redirect uri, got %s", config.Tidal.RedirectURI)
		}

		t.Run("Invalid Port", func(t *testing.T) {
			config := DefaultConfig()
			err := config.ApplyEnv(func(k string) (string, bool) {
				if k == "HARMONIQ_PORT" {
					return "eighty", true
				}
				return "", false
			})
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("LoadDotEnv", func(t *testing.T) {
		t.Run("Missing Files Are Skipped", func(t *testing.T) {
			if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
				t.Errorf("expected nil error, got %v", err)
			}
		})

		t.Run("Loads Values Without Overriding", func(t *testing.T) {
			envPath := filepath.Join(t.TempDir(), ".env")
			content := "HARMONIQ_TEST_DOTENV_NEW=from-file\nHARMONIQ_TEST_DOTENV_SET=from-file\n"
			if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
				t.Fatalf("failed to write env file: %v", err)
			}
			t.Setenv("HARMONIQ_TEST_DOTENV_SET", "from-env")
			t.Cleanup(func() { os.Unsetenv("HARMONIQ_TEST_DOTENV_NEW") })

			if err := LoadDotEnv(envPath); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := os.Getenv("HARMONIQ_TEST_DOTENV_NEW"); got != "from-file" {
				t.Errorf("expected from-file, got %q", got)
			}
			if got := os.Getenv("HARMONIQ_TEST_DOTENV_SET"); got != "from-env" {
				t.Errorf("expected existing env to win, got %q", got)
			}
		})
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		err := config.Validate()
		if !errors.Is(err, ErrMissingConfig) {
			t.Fatalf("expected ErrMissingConfig, got %v", err)
		}
		if !strings.Contains(err.Error(), "tidal.client_id") || !strings.Contains(err.Error(), "tidal.client_secret") {
			t.Errorf("expected missing keys in message, got %v", err)
		}

		config.Tidal.ClientID = "id"
		config.Tidal.ClientSecret = "secret"
		if err := config.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})
}
