package main

import (
	"github.com/spf13/cobra"

	"github.com/nah-run/nah/internal/install"
	"github.com/nah-run/nah/internal/registry"
)

var listNAKFlag bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed apps or NAKs",
	Run: func(cmd *cobra.Command, args []string) {
		root := requireRoot()

		var entries []registry.Entry
		var err error
		if listNAKFlag {
			entries, err = install.ListNAKs(root)
		} else {
			entries, err = install.ListApps(root)
		}
		if err != nil {
			printError(err, nil)
			exitWithCode(ExitGeneral)
		}

		if len(entries) == 0 {
			printInfo("Nothing installed.")
			return
		}

		for _, e := range entries {
			printInfof("%-40s  %s\n", e.ID, e.Version)
		}
	},
}

func init() {
	listCmd.Flags().BoolVar(&listNAKFlag, "nak", false, "List NAKs instead of apps")
}
