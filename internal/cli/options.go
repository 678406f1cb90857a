package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vvka-141/streamdb/internal/config"
	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// passwordReader reads a password from the terminal. Replaced in tests.
var passwordReader = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password-prompt requires an interactive terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// loadConnectionConfig resolves the configuration for a command: .env, the
// YAML file, environment overrides and, when asked, a terminal prompt.
func loadConnectionConfig(cmd *cobra.Command) (*streamdb.ConnectionConfig, error) {
	_ = godotenv.Load()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	fileCfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w: %w", err, streamdb.ErrInvalidConfig)
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	fileCfg.ApplyEnv(os.LookupEnv)

	if prompt, _ := cmd.Flags().GetBool("password-prompt"); prompt {
		password, err := passwordReader()
		if err != nil {
			return nil, err
		}
		fileCfg.Password = streamdb.Secret(password)
	}

	return fileCfg.ToConnectionConfig()
}

// printConfigSummary writes the resolved settings without secrets.
func printConfigSummary(w io.Writer, cfg *streamdb.ConnectionConfig, scope string) {
	fmt.Fprintf(w, "[VERBOSE] Configuration resolved:\n")
	fmt.Fprintf(w, "  Driver: %s\n", cfg.DriverClass)
	if cfg.DriverLibrary != "" {
		fmt.Fprintf(w, "  Driver Library: %s\n", cfg.DriverLibrary)
	}
	fmt.Fprintf(w, "  Attempts: %d (wait %s, %s backoff)\n", cfg.MaxAttempts(), cfg.RetryWait, backoffName(cfg.RetryBackoff))
	if cfg.CooldownEnabled() {
		fmt.Fprintf(w, "  Cooldown: %s on %q\n", cfg.RetryDelay, scope)
	} else {
		fmt.Fprintf(w, "  Cooldown: disabled\n")
	}
	if cfg.ValidateConnection {
		fmt.Fprintf(w, "  Validation: idle > %s\n", cfg.ValidationTimeout)
	}
	fmt.Fprintf(w, "  Auth Method: %s\n", cfg.AuthMethod)
}

func backoffName(k streamdb.BackoffKind) string {
	if k == "" {
		return string(streamdb.BackoffFixed)
	}
	return strings.ToLower(string(k))
}
