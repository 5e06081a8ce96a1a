package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/diagnostic-versions/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "diagnostic-versions",
	Short: "Versioned diagnostic structures: import, finalize, activate",
	Long:  "Manages draft and finalized versions of diagnostic question/option/outcome structures, imported from xlsx workbooks and served to the public form.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRuntime()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initRuntime loads the config and installs the global logger.
func initRuntime() error {
	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "root: load config")
	}
	cfg = c

	if err := config.InitLogger(cfg.Log); err != nil {
		return eris.Wrap(err, "root: init logger")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
