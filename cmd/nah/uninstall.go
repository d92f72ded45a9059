package main

import (
	"github.com/spf13/cobra"

	"github.com/nah-run/nah/internal/errmsg"
	"github.com/nah-run/nah/internal/install"
)

var (
	uninstallVersionFlag string
	uninstallNAKFlag     bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <id>",
	Short: "Uninstall an app or NAK",
	Long: `uninstall removes an installed app's tree and registry record. Use --nak
to uninstall a runtime-kit instead; a NAK still pinned by an installed app
is refused.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		root := requireRoot()

		var err error
		if uninstallNAKFlag {
			err = install.UninstallNAK(root, id, uninstallVersionFlag, install.Options{})
		} else {
			err = install.UninstallApp(root, id, uninstallVersionFlag, install.Options{})
		}
		if err != nil {
			printError(err, &errmsg.ErrorContext{AppID: id})
			exitWithCode(ExitGeneral)
		}

		printInfof("Uninstalled %s\n", id)
	},
}

func init() {
	uninstallCmd.Flags().StringVar(&uninstallVersionFlag, "version", "", "Exact version to uninstall (required if more than one is installed)")
	uninstallCmd.Flags().BoolVar(&uninstallNAKFlag, "nak", false, "Uninstall a NAK instead of an app")
}
