package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Stefan-Code/aestar/internal/catalogue"
	"github.com/Stefan-Code/aestar/internal/changer"
	"github.com/Stefan-Code/aestar/internal/constants"
	"github.com/Stefan-Code/aestar/internal/validation"
)

func newImportVolumesCmd() *cobra.Command {
	var databaseFile string
	var changerDevice string
	var excludePrefix string

	cmd := &cobra.Command{
		Use:   "import-volumes",
		Short: "Register every loaded, accessible cartridge in the changer as a known volume",
		Long: `Scans the attached medium changer's status and records every full,
accessible, non-cleaning cartridge as a known volume in the catalogue —
the Go equivalent of the original import_volumes helper, wired up here
as a standalone command instead of dead code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportVolumes(databaseFile, changerDevice, excludePrefix)
		},
	}

	cmd.Flags().StringVar(&databaseFile, "database-file", "aestar.sqlite", "sqlite catalogue path")
	cmd.Flags().StringVar(&changerDevice, "changer-device", "", "chio device for the attached medium changer (required)")
	cmd.Flags().StringVar(&excludePrefix, "exclude-prefix", constants.CleaningCartridgePrefix, "voltag prefix to exclude from import (cleaning cartridges)")
	_ = cmd.MarkFlagRequired("changer-device")

	return cmd
}

func runImportVolumes(databaseFile, changerDevice, excludePrefix string) error {
	if err := validation.ValidateFilePath(databaseFile); err != nil {
		return fmt.Errorf("aestar: --database-file: %w", err)
	}

	cat, err := catalogue.Open(databaseFile)
	if err != nil {
		return err
	}
	defer cat.Close()

	chg := changer.New(changerDevice)
	var status map[string]changer.SlotStatus
	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(rootCtx, constants.ChangerStatusTimeout)
		status, err = chg.Status(ctx)
		cancel()
		if err == nil || attempt == constants.ChangerMaxRetries || rootCtx.Err() != nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("changer status failed, retrying")
		time.Sleep(constants.ChangerRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("aestar: changer status: %w", err)
	}

	candidates, err := changer.ImportVolumes(status, excludePrefix)
	if err != nil {
		return fmt.Errorf("aestar: import volumes: %w", err)
	}

	for _, c := range candidates {
		if err := cat.UpsertVolume(c.Voltag, true, 0, 0); err != nil {
			return fmt.Errorf("aestar: register volume %q: %w", c.Voltag, err)
		}
		log.Info().Str("voltag", c.Voltag).Msg("registered volume")
	}
	log.Info().Int("count", len(candidates)).Msg("import-volumes complete")
	return nil
}
