package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nah-run/nah/internal/install"
)

var (
	installForceFlag              bool
	installAllowUnresolvedPinFlag bool
	installNAKFlag                bool
)

var installCmd = &cobra.Command{
	Use:   "install <archive>",
	Short: "Install an app or NAK package",
	Long: `install unpacks a .nap (app) or .nak (runtime-kit) archive into the NAH
root and writes its install record. Use --nak to install a runtime-kit
package instead of an app.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		archivePath := args[0]
		root := requireRoot()

		archiveBytes, err := os.ReadFile(archivePath)
		if err != nil {
			printError(err, nil)
			exitWithCode(ExitGeneral)
		}

		opts := install.Options{
			Force:              installForceFlag,
			AllowUnresolvedPin: installAllowUnresolvedPinFlag,
		}

		if installNAKFlag {
			result, installErr := install.InstallNAK(root, archiveBytes, opts)
			if installErr != nil {
				printError(installErr, nil)
				exitWithCode(ExitGeneral)
			}
			printInfof("Installed NAK %s@%s\n", result.Record.ID, result.Record.Version)
			return
		}

		result, installErr := install.InstallApp(root, archiveBytes, opts)
		if installErr != nil {
			printError(installErr, nil)
			exitWithCode(ExitGeneral)
		}
		printInfof("Installed app %s@%s\n", result.Record.App.ID, result.Record.App.Version)
		for _, w := range result.Warnings {
			printInfof("  warning: %s\n", w.Key)
		}
	},
}

func init() {
	installCmd.Flags().BoolVar(&installForceFlag, "force", false, "Overwrite an existing install at the destination")
	installCmd.Flags().BoolVar(&installAllowUnresolvedPinFlag, "allow-unresolved-pin", false, "Allow install to complete with an unresolved NAK pin")
	installCmd.Flags().BoolVar(&installNAKFlag, "nak", false, "Install a NAK package instead of an app")
}
