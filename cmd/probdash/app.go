package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/coffersTech/probdash/internal/board"
	"github.com/coffersTech/probdash/internal/config"
	"github.com/coffersTech/probdash/internal/pkg/security"
	"github.com/coffersTech/probdash/internal/prefs"
	"github.com/coffersTech/probdash/internal/problem"
	"github.com/coffersTech/probdash/internal/sheet"
	"github.com/coffersTech/probdash/internal/storage"
)

const (
	snapshotFile = "problems.snap"
	prefsFile    = "prefs.bin"
	keyFile      = "master.key"
)

// app holds what the subcommands share.
type app struct {
	settings config.Settings
}

func (a *app) path(name string) string {
	return filepath.Join(a.settings.DataPath, name)
}

func (a *app) client() (*sheet.Client, error) {
	if err := a.settings.RequireRemote(); err != nil {
		return nil, err
	}
	return sheet.NewClient(a.settings.APIBase, a.settings.HTTPTimeout), nil
}

// loadSnapshot fills store from the offline snapshot, if there is one.
func (a *app) loadSnapshot(store *board.Store) error {
	reader, err := storage.NewSnapshotReader()
	if err != nil {
		return err
	}
	list, meta, err := reader.ReadSnapshot(a.path(snapshotFile))
	if err != nil {
		return err
	}
	if len(list) > 0 {
		store.Replace(list)
		log.Info().Uint32("count", meta.RowCount).Time("saved_at", meta.SavedAt).Msg("snapshot loaded")
	}
	return nil
}

func (a *app) saveSnapshot(w *storage.SnapshotWriter, list []problem.Problem) {
	if len(list) == 0 {
		return
	}
	if err := w.WriteSnapshot(a.path(snapshotFile), list); err != nil {
		log.Warn().Err(err).Msg("snapshot not saved")
	}
}

// openPrefs resolves the master key and loads the saved preferences.
func (a *app) openPrefs() (*prefs.Store, error) {
	if err := os.MkdirAll(a.settings.DataPath, 0755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}

	c, generated, err := security.LoadCipher(security.KeySource{
		HexKey:     a.settings.MasterKey,
		Passphrase: a.settings.Passphrase,
		KeyPath:    a.path(keyFile),
	})
	if err != nil {
		return nil, err
	}
	if generated {
		log.Warn().Str("path", a.path(keyFile)).Msg("generated new master key, keep it with the data directory")
	}

	ps := prefs.NewStore(a.path(prefsFile), c, prefs.Preferences{
		Member: a.settings.DefaultMember,
		Filter: board.FilterAll,
	})
	if err := ps.Load(); err != nil {
		return nil, err
	}
	return ps, nil
}
