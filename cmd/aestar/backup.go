package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Stefan-Code/aestar/internal/archive"
	"github.com/Stefan-Code/aestar/internal/backupdriver"
	"github.com/Stefan-Code/aestar/internal/catalogue"
	"github.com/Stefan-Code/aestar/internal/changer"
	"github.com/Stefan-Code/aestar/internal/config"
	"github.com/Stefan-Code/aestar/internal/constants"
	"github.com/Stefan-Code/aestar/internal/events"
	"github.com/Stefan-Code/aestar/internal/mediumio"
	"github.com/Stefan-Code/aestar/internal/pathutil"
	"github.com/Stefan-Code/aestar/internal/progress"
	"github.com/Stefan-Code/aestar/internal/queue"
	"github.com/Stefan-Code/aestar/internal/sectorcipher"
	"github.com/Stefan-Code/aestar/internal/walker"
)

func newBackupCmd() *cobra.Command {
	cfg := config.Defaults()
	var includeHidden bool
	var noChecksums bool

	cmd := &cobra.Command{
		Use:   "backup DIRECTORY",
		Short: "Back up a directory tree to encrypted tape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := pathutil.ResolveAbsolutePath(args[0])
			if err != nil {
				return fmt.Errorf("aestar: resolve directory: %w", err)
			}
			cfg.Directory = resolved

			iniPath := cfgFile
			if iniPath == "" {
				iniPath = config.DefaultIniPath()
				if _, err := os.Stat(iniPath); err != nil {
					iniPath = ""
				}
			}
			// Flags given on the command line take precedence over the INI
			// file: remember them and set them again after the overlay.
			fromFlags := map[string]string{}
			for _, name := range []string{"database-file", "compression", "bufsize", "sector-size", "sync", "pad", "changer-device"} {
				if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
					fromFlags[name] = f.Value.String()
				}
			}
			if err := config.ApplyIniDefaults(&cfg, iniPath); err != nil {
				return err
			}
			for name, value := range fromFlags {
				if err := cmd.Flags().Set(name, value); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runBackup(rootCtx, cfg, includeHidden, !noChecksums)
		},
	}

	cmd.Flags().StringVarP(&cfg.ArchiveFile, "file", "f", "", "destination tape device or archive file (required)")
	cmd.Flags().StringVarP(&cfg.PassphraseFile, "passphrase-file", "P", "", "file containing the encryption passphrase (required)")
	cmd.Flags().StringVar(&cfg.DatabaseFile, "database-file", cfg.DatabaseFile, "sqlite catalogue path")
	cmd.Flags().StringVarP((*string)(&cfg.Compression), "compression", "z", "", `streaming compression: "" or "gz"`)
	cmd.Flags().IntVar(&cfg.BufSize, "bufsize", cfg.BufSize, "staging buffer size in bytes (multiple of --sector-size)")
	cmd.Flags().IntVar(&cfg.SectorSize, "sector-size", cfg.SectorSize, "aespipe sector size in bytes")
	cmd.Flags().BoolVar(&cfg.Sync, "sync", cfg.Sync, "fsync the medium after every write")
	cmd.Flags().BoolVar(&cfg.Pad, "pad", cfg.Pad, "pad the final short write to a full sector")
	cmd.Flags().StringVar(&cfg.ChangerDevice, "changer-device", "", "chio device for an attached medium changer (omit to prompt for manual volume swaps)")
	cmd.Flags().BoolVar(&cfg.FlushCompressOnAdd, "flush-on-add", false, "flush the compressor after every archive member (hurts ratio, tightens committability)")
	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "include dotfiles and dot-directories")
	cmd.Flags().BoolVar(&noChecksums, "no-checksums", false, "skip the SHA-1 pass over regular files")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("passphrase-file")

	return cmd
}

// backupRun carries the mutable bookkeeping state a backup's catalogue and
// progress-UI wiring needs across the lifetime of backupdriver.Driver.Run,
// which only talks to its collaborators through narrow hook/event
// interfaces.
type backupRun struct {
	mu sync.Mutex

	cat       *catalogue.Catalogue
	backupID  int64
	fileIDs   map[string]int64
	partialID int64
	volTag    string
	volFiles  int
	volBytes  int64

	chg        *changer.Changer
	stdin      *bufio.Reader
	volUI      *progress.VolumeUI
	overall    progress.Reporter
	totalBytes int64
}

func runBackup(ctx context.Context, cfg config.BackupConfig, includeHidden, checksums bool) error {
	passphrase, err := config.ReadPassphraseFile(cfg.PassphraseFile)
	if err != nil {
		return err
	}
	if warning := config.PassphraseWarning(passphrase); warning != "" {
		log.Warn().Msg(warning)
	}
	key := sectorcipher.DeriveKey(passphrase)

	cat, err := catalogue.Open(cfg.DatabaseFile)
	if err != nil {
		return err
	}
	defer cat.Close()

	backupID, err := cat.CreateBackup(cfg.Directory, cfg.Directory, "full", time.Now().Unix())
	if err != nil {
		return fmt.Errorf("aestar: record backup start: %w", err)
	}

	var chg *changer.Changer
	if cfg.ChangerDevice != "" {
		chg = changer.New(cfg.ChangerDevice)
	}

	run := &backupRun{
		cat:     cat,
		backupID: backupID,
		fileIDs: make(map[string]int64),
		chg:     chg,
		stdin:   bufio.NewReader(os.Stdin),
		volUI:   progress.NewVolumeUI(),
		overall: progress.NewCLIProgress(),
	}
	run.overall.Start(-1, "aestar backup")
	defer run.overall.Finish()

	bus := events.NewBus(constants.EventBusDefaultBuffer)
	defer bus.Close()
	go consumeEvents(bus, run)

	fileCh, walkErrs := walker.Walk(ctx, cfg.Directory, walker.Options{
		IncludeHidden:    includeHidden,
		ComputeChecksums: checksums,
		ChannelBuffer:    constants.WalkerQueueDepth,
	}, log)

	items := make(chan backupdriver.Item, constants.WalkerQueueDepth)
	go func() {
		defer close(items)
		for fi := range fileCh {
			items <- fi
		}
	}()

	q := queue.New[backupdriver.Item](items)

	preAdd := func(item backupdriver.Item) error {
		fi, ok := item.(walker.FileInfo)
		if !ok {
			return fmt.Errorf("aestar: unexpected queue item type %T", item)
		}
		fileID, err := cat.InsertFile(fi)
		if err != nil {
			return err
		}
		run.mu.Lock()
		run.fileIDs[fi.Path()] = fileID
		run.mu.Unlock()
		return nil
	}

	commit := func(item backupdriver.Item, volumeTag string) error {
		var size int64
		if fi, ok := item.(walker.FileInfo); ok {
			size = fi.Size
		}
		run.mu.Lock()
		fileID := run.fileIDs[item.Path()]
		partialID := run.partialID
		run.volFiles++
		run.volBytes += size
		run.totalBytes += size
		volBytes, totalBytes := run.volBytes, run.totalBytes
		run.mu.Unlock()
		if err := cat.RecordBackedUpFile(fileID, partialID); err != nil {
			return err
		}
		run.volUI.MemberAdded()
		run.volUI.UpdateBytes(volBytes)
		run.overall.Update(totalBytes)
		return nil
	}

	open := openVolumeFunc(cfg, key, run)
	driver := backupdriver.New(q, open, preAdd, commit, bus, log)

	runErr := driver.Run(ctx)

	if werr := <-walkErrs; werr != nil && werr != context.Canceled {
		log.Errorf("aestar: filesystem walk: %v", werr)
		if runErr == nil {
			runErr = werr
		}
	}

	run.volUI.Wait()
	if runErr != nil {
		return fmt.Errorf("aestar: backup failed: %w", runErr)
	}
	log.Info().Int64("backup_id", backupID).Msg("backup complete")
	return nil
}

// openVolumeFunc opens a fresh ArchiveWriter for each physical volume,
// waiting for the next volume (confirmed on stdin, or checked through the
// changer) for every volume after the first.
func openVolumeFunc(cfg config.BackupConfig, key []byte, run *backupRun) backupdriver.OpenVolumeFunc {
	return func(ctx context.Context, volumeSeq int) (*archive.ArchiveWriter, string, error) {
		if volumeSeq > 0 {
			if err := awaitNextVolume(ctx, run); err != nil {
				return nil, "", err
			}
		}

		f, err := os.OpenFile(cfg.ArchiveFile, os.O_WRONLY|os.O_CREATE, 0o600)
		if err != nil {
			return nil, "", fmt.Errorf("aestar: open %q: %w", cfg.ArchiveFile, err)
		}
		medium := mediumio.Wrap(f)
		sink, err := mediumio.NewEncryptedSink(medium, key, mediumio.SinkConfig{
			SectorSize: cfg.SectorSize,
			BufSize:    cfg.BufSize,
			Pad:        cfg.Pad,
			Sync:       cfg.Sync,
		})
		if err != nil {
			return nil, "", err
		}
		aw, err := archive.NewArchiveWriter(sink, archive.WriterConfig{
			BufSize:     cfg.BufSize,
			Compression: cfg.Compression,
			FlushOnAdd:  cfg.FlushCompressOnAdd,
		})
		if err != nil {
			return nil, "", err
		}

		volumeTag := fmt.Sprintf("vol-%03d", volumeSeq+1)
		partialID, err := run.cat.CreatePartialBackup(run.backupID, volumeTag, volumeSeq, time.Now().Unix())
		if err != nil {
			return nil, "", fmt.Errorf("aestar: record volume start: %w", err)
		}

		run.mu.Lock()
		run.partialID = partialID
		run.volTag = volumeTag
		run.volFiles = 0
		run.volBytes = 0
		run.mu.Unlock()

		return aw, volumeTag, nil
	}
}

// awaitNextVolume blocks until the next physical volume is ready: confirmed
// manually on stdin, or, when a changer is configured, checked through
// `chio status` for at least one accessible, non-cleaning cartridge. It does
// not move a cartridge into the drive itself.
func awaitNextVolume(ctx context.Context, run *backupRun) error {
	if run.chg == nil {
		fmt.Fprintln(os.Stderr, "aestar: end of medium reached, load the next volume and press Enter")
		_, err := run.stdin.ReadString('\n')
		return err
	}

	statusCtx, cancel := context.WithTimeout(ctx, constants.ChangerStatusTimeout)
	defer cancel()
	status, err := run.chg.Status(statusCtx)
	if err != nil {
		return fmt.Errorf("aestar: changer status: %w", err)
	}
	candidates, err := changer.ImportVolumes(status, constants.CleaningCartridgePrefix)
	if err != nil {
		return fmt.Errorf("aestar: changer import volumes: %w", err)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("aestar: no accessible cartridge available in the changer")
	}
	return nil
}

// consumeEvents drives the catalogue's volume bookkeeping and the
// progress UI from the backup driver's published events, so neither
// collaborator needs a direct reference to the other.
func consumeEvents(bus *events.Bus, run *backupRun) {
	for ev := range bus.SubscribeAll() {
		switch e := ev.(type) {
		case events.VolumeEvent:
			switch e.Type() {
			case events.EventVolumeOpened:
				run.volUI.OpenVolume(e.VolumeTag, 0)
			case events.EventVolumeClosed, events.EventVolumeExhausted:
				eot := e.Type() == events.EventVolumeExhausted
				run.volUI.CloseVolume(eot)
				run.mu.Lock()
				partialID, volTag, numFiles, numBytes := run.partialID, run.volTag, run.volFiles, run.volBytes
				run.mu.Unlock()
				if err := run.cat.CompletePartialBackup(partialID, int64(numFiles), numBytes, time.Now().Unix()); err != nil {
					log.Errorf("aestar: complete partial backup: %v", err)
				}
				if err := run.cat.UpsertVolume(volTag, !eot, numBytes, 1); err != nil {
					log.Errorf("aestar: upsert volume: %v", err)
				}
			}
		case events.ErrorEvent:
			log.Errorf("aestar: %s: %v", e.Stage, e.Err)
		}
	}
}
