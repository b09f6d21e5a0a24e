package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codebraid/internal/config"
)

var (
	configDir string
	quiet     bool

	// cfg is loaded once in initConfig and read by every subcommand.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "codebraid",
	Short: "Codebraid - execute and cache code chunks embedded in documents",
	Long: `Codebraid reads a document's code chunks, groups them into sessions,
executes each session's chunks in one subprocess per session, and caches
the results so unchanged sessions are never rerun.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding .codebraid/config.yml (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress status line")
}

// initConfig loads configuration via internal/config. If the working
// directory cannot be resolved or the configuration fails to load, it
// prints the error to stderr and exits with status 1.
func initConfig() {
	dir := configDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "codebraid: resolving working directory:", err)
			os.Exit(1)
		}
		dir = wd
	}

	loaded, err := config.LoadConfigFromDir(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codebraid: loading configuration:", err)
		os.Exit(1)
	}
	if quiet {
		loaded.Progress.Quiet = true
	}
	cfg = loaded
}
