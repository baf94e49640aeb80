package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// ClientConfig is read by the terminal client.
type ClientConfig struct {
	APIURL    string
	TokenFile string
}

func LoadClient() ClientConfig {
	_ = godotenv.Load()

	return loadClient(os.LookupEnv, os.UserHomeDir)
}

func loadClient(lookup func(string) (string, bool), home func() (string, error)) ClientConfig {
	cfg := ClientConfig{APIURL: "http://localhost:8080"}
	if v, ok := lookup("EXPENSES_API_URL"); ok && v != "" {
		cfg.APIURL = v
	}
	if v, ok := lookup("EXPENSES_TOKEN_FILE"); ok && v != "" {
		cfg.TokenFile = v
		return cfg
	}

	dir, err := home()
	if err != nil {
		dir = "."
	}
	cfg.TokenFile = filepath.Join(dir, ".expenses", "tokens.json")
	return cfg
}
