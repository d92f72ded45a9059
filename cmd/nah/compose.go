package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nah-run/nah/internal/compose"
	"github.com/nah-run/nah/internal/errmsg"
	"github.com/nah-run/nah/internal/install"
)

var (
	composeVersionFlag       string
	composeHostEnvPathFlag   string
	composeOverridesPathFlag string
	composeTraceFlag         bool
)

var composeCmd = &cobra.Command{
	Use:   "compose <app-id>",
	Short: "Compose a Launch Contract for an installed app",
	Long: `compose runs the pure composition algorithm against an installed app's
manifest and install record, printing the resulting Launch Contract envelope
as JSON. A non-null critical_error field means composition failed; the
process still exits non-zero in that case.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appID := args[0]
		root := requireRoot()

		entry, err := install.ResolveAppEntry(root, appID, composeVersionFlag)
		if err != nil {
			printError(err, &errmsg.ErrorContext{AppID: appID})
			exitWithCode(ExitGeneral)
		}

		appRecordBlob, err := os.ReadFile(entry.Path)
		if err != nil {
			printError(err, &errmsg.ErrorContext{AppID: appID})
			exitWithCode(ExitGeneral)
		}

		appTreeDir := root.AppTreeDir(entry.ID, entry.Version)
		manifestBlob, err := install.LocateManifest(appTreeDir, nil)
		if err != nil {
			printError(err, &errmsg.ErrorContext{AppID: appID})
			exitWithCode(ExitGeneral)
		}

		hostEnvPath := composeHostEnvPathFlag
		if hostEnvPath == "" {
			hostEnvPath = root.HostFile
		}
		hostEnvBlob, _ := os.ReadFile(hostEnvPath)

		var overridesBlob []byte
		if composeOverridesPathFlag != "" {
			overridesBlob, err = os.ReadFile(composeOverridesPathFlag)
			if err != nil {
				printError(err, nil)
				exitWithCode(ExitGeneral)
			}
		}

		env := compose.Compose(compose.Input{
			Root:              appTreeDir,
			ManifestBlob:      manifestBlob,
			AppRecordBlob:     appRecordBlob,
			NAKLoader:         install.RegistryNAKLoader(root),
			HostEnvBlob:       hostEnvBlob,
			ProcessEnv:        processEnvMap(),
			OverridesFileBlob: overridesBlob,
			Now:               time.Now(),
			WithTrace:         composeTraceFlag,
		})

		printEnvelope(env)
		if env.CriticalError != nil {
			exitWithCode(ExitCriticalError)
		}
	},
}

func init() {
	composeCmd.Flags().StringVar(&composeVersionFlag, "version", "", "App version (required if more than one is installed)")
	composeCmd.Flags().StringVar(&composeHostEnvPathFlag, "host-env", "", "Path to a host environment JSON file (defaults to <root>/host/host.json)")
	composeCmd.Flags().StringVar(&composeOverridesPathFlag, "overrides-file", "", "Path to an overrides JSON file")
	composeCmd.Flags().BoolVar(&composeTraceFlag, "trace", false, "Include environment provenance trace in the envelope")
}

// processEnvMap snapshots the process environment into a map, the shape
// compose.Input.ProcessEnv expects.
func processEnvMap() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			out[kv[:idx]] = kv[idx+1:]
		}
	}
	return out
}
