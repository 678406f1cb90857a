package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vvka-141/streamdb/internal/db"
)

var driversLibraries []string

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List the driver classes accepted by jdbc_driver_class",
	Args:  cobra.NoArgs,
	RunE:  runDrivers,
}

func init() {
	rootCmd.AddCommand(driversCmd)
	driversCmd.Flags().StringArrayVar(&driversLibraries, "library", nil, "Load a driver library before listing (repeatable)")
}

func runDrivers(cmd *cobra.Command, args []string) error {
	factory := db.NewFactory()
	for _, lib := range driversLibraries {
		if err := factory.LoadLibrary(lib); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tALIASES\tDESCRIPTION")
	for _, d := range factory.Registry().Drivers() {
		aliases := strings.Join(d.Aliases, ", ")
		if aliases == "" {
			aliases = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, aliases, d.Description)
	}
	for _, name := range factory.Registry().PluginDrivers() {
		_, _ = fmt.Fprintf(w, "%s\t-\tregistered by driver library\n", name)
	}
	return w.Flush()
}
