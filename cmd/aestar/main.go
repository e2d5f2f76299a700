// Command aestar streams a directory tree into an aespipe-compatible
// encrypted tar archive on sequential media (a tape device or a plain
// file standing in for one), spanning as many physical volumes as the
// backup needs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Stefan-Code/aestar/internal/logging"
)

var (
	cfgFile    string
	verbosity  int
	logfile    string
	log        *logging.Logger
	rootCtx    context.Context
	cancelFunc context.CancelFunc
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aestar",
		Short: "Encrypted tar backups to sequential tape media",
		Long: `aestar streams a directory tree into an AES-128-CBC per-sector
encrypted tar archive on sequential media, aespipe single-key-mode
compatible, spanning volumes as needed and recording what landed where
in a small sqlite catalogue.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logfile != "" {
				f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					fmt.Fprintf(os.Stderr, "aestar: open logfile: %v\n", err)
					os.Exit(1)
				}
				log = logging.NewFile(f)
			} else {
				log = logging.NewDefault()
			}
			if verbosity >= 2 {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			} else if verbosity == 1 {
				logging.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to aestar.ini (defaults to $XDG_CONFIG_HOME/aestar/aestar.ini if present)")
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase logging verbosity (-v info, -vv debug)")
	root.PersistentFlags().StringVar(&logfile, "logfile", "", "write logs to this file instead of stderr")

	root.AddCommand(newBackupCmd())
	root.AddCommand(newImportVolumesCmd())
	return root
}

func main() {
	rootCtx, cancelFunc = context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		if sig, ok := <-sigCh; ok {
			fmt.Fprintf(os.Stderr, "\naestar: received %v, cancelling the backup (the current volume is not finalised)\n", sig)
			cancelFunc()
		}
	}()

	err := newRootCmd().Execute()
	signal.Stop(sigCh)
	close(sigCh)
	if err != nil {
		os.Exit(1)
	}
}
