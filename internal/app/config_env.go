package app

import (
    "errors"
    "fmt"
    "io/fs"
    "os"
    "strings"

    "github.com/caarlos0/env/v10"
    "github.com/joho/godotenv"
)

// LoadEnvFiles loads dotenv files into the process environment. Variables
// already set in the environment are kept. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
    for _, p := range paths {
        if strings.TrimSpace(p) == "" {
            continue
        }
        if err := godotenv.Load(p); err != nil {
            if errors.Is(err, fs.ErrNotExist) {
                continue
            }
            return fmt.Errorf("load %s: %w", p, err)
        }
    }
    return nil
}

// ApplyEnv overrides cfg fields whose environment variables are set. Unset
// variables leave the current value alone, so file and default values survive.
func ApplyEnv(cfg *Config) error {
    if cfg == nil {
        return nil
    }
    if err := env.Parse(cfg); err != nil {
        return fmt.Errorf("parse env: %w", err)
    }
    // SEARXNG_* are accepted as aliases for deployments that already use them.
    if v := os.Getenv("SEARXNG_URL"); v != "" && os.Getenv("SEARX_URL") == "" {
        cfg.SearxURL = v
    }
    if v := os.Getenv("SEARXNG_KEY"); v != "" && os.Getenv("SEARX_KEY") == "" {
        cfg.SearxKey = v
    }
    return nil
}
