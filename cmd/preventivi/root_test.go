package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"preventivi/internal/repository"
	"preventivi/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "stats", "export", "scan"})
}

// prepareState пишет файл состояния во временный каталог и настраивает окружение
func prepareState(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "state.json")
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("STATE_PATH", path)
	t.Setenv("LOG_LEVEL", "error")

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	doc := tracker.Document{
		Items: []tracker.Item{
			{
				Key:          tracker.Key{Recipient: -100, SourceID: "q1"},
				Label:        "Cucina",
				CreatedAt:    now,
				LastActionAt: now,
				State:        tracker.StatePending,
			},
			{
				Key:          tracker.Key{Recipient: -100, SourceID: "q2"},
				Label:        "Bagno",
				CreatedAt:    now,
				LastActionAt: now,
				State:        tracker.StateConfirmed,
				ClosedAt:     now.Add(time.Hour),
			},
		},
		Daily: map[string]tracker.DayStats{"2026-03-02": {Sent: 2, Confirmed: 1}},
	}
	require.NoError(t, repository.NewFileStore(path).Save(context.Background(), doc))
	return dir
}

func TestStatsCmd(t *testing.T) {
	prepareState(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"stats", "--days", "3"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "In attesa: 1")
	assert.Contains(t, out.String(), "Confermati: 1")
	assert.Contains(t, out.String(), "2026-03-02: 2 / 1 / 0")
}

func TestExportCmd(t *testing.T) {
	dir := prepareState(t)
	output := filepath.Join(dir, "out.xlsx")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"export", "-o", output})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), output)

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Preventivi")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestStatsCmd_CorruptState(t *testing.T) {
	dir := prepareState(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte("{"), 0o644))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"stats"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, tracker.ErrCorrupt)

	// команда отчёта не трогает файл работающего бота
	data, err := os.ReadFile(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	assert.Equal(t, "{", string(data))
	_, statErr := os.Stat(filepath.Join(dir, "state.json.corrupt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	root.SetArgs([]string{"run"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "BOT_TOKEN")
}

func TestStatsCmd_NegativeDays(t *testing.T) {
	prepareState(t)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"stats", "--days=-1"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "--days")
}
