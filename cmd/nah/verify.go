package main

import (
	"github.com/spf13/cobra"

	"github.com/nah-run/nah/internal/errmsg"
	"github.com/nah-run/nah/internal/install"
)

var (
	verifyVersionFlag string
	verifyNAKFlag     bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Verify an installed app or NAK without changing anything",
	Long: `verify re-parses an install record and confirms its tree and (for apps)
manifest and pinned NAK record are present. It never mutates state.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		root := requireRoot()

		var report *install.Report
		var err error
		if verifyNAKFlag {
			report, err = install.VerifyNAK(root, id, verifyVersionFlag)
		} else {
			report, err = install.VerifyApp(root, id, verifyVersionFlag, install.Options{})
		}
		if err != nil {
			printError(err, &errmsg.ErrorContext{AppID: id})
			exitWithCode(ExitGeneral)
		}

		if report.OK {
			printInfof("%s: OK\n", id)
			return
		}

		printInfof("%s: FAILED\n", id)
		for _, issue := range report.Issues {
			printInfof("  - %s\n", issue)
		}
		exitWithCode(ExitVerifyFailed)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyVersionFlag, "version", "", "Exact version to verify (required if more than one is installed)")
	verifyCmd.Flags().BoolVar(&verifyNAKFlag, "nak", false, "Verify a NAK instead of an app")
}
