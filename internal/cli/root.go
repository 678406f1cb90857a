package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/streamdb/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "streamdb",
	Short: "Resilient connection acquisition for streaming enrichment stages",
	Long: `streamdb acquires database connections for an enrichment stage the way the
stage would at startup: load the driver, connect, retry transport failures and
honour a cooldown window shared by every stage configured with the same
coordination label.

Settings are read from a YAML file (streamdb.yaml by default) using the
jdbc_* and connection_retry_* option names. A .env file in the working
directory is loaded first; STREAMDB_PASSWORD and STREAMDB_CONNECTION_STRING
override the file.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - All connection attempts failed
  12 - Driver could not be loaded
  13 - Cooldown window active`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().StringP("config", "c", config.ConfigFileName, "Path to the config file or its directory")
	rootCmd.PersistentFlags().Bool("password-prompt", false, "Prompt for the database password on the terminal")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
