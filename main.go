package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"amrnet/logging"
)

var (
	verbose  bool
	jsonLogs bool
	logger   *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "amrnet",
		Short: "train and evaluate feed-forward MIC predictors on genomic features",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(verbose, jsonLogs)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&jsonLogs, "json", false, "log as JSON")

	root.AddCommand(trainCmd(), predictCmd(), gradcheckCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
	if logger != nil {
		logger.Sync()
	}
}
