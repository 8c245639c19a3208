package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replayscraper/pkg/store"
)

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "gen9ou-1000.csv", exportFileName("[Gen 9] OU", 1000))
	assert.Equal(t, "gen8randombattle-50.csv", exportFileName("[Gen 8] Random Battle", 50))
	assert.Equal(t, "customgame-10.csv", exportFileName("Custom Game", 10))
}

func TestWriteExport(t *testing.T) {
	rating := 1500
	path := filepath.Join(t.TempDir(), "gen9ou-2.csv")

	require.NoError(t, writeExport(path, []store.Replay{
		{ID: "gen9ou-1", Format: "[Gen 9] OU", Rating: &rating, Log: "|start"},
		{ID: "gen9ou-2", Format: "[Gen 9] OU", Log: "|win|p1"},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,format,rating,log\ngen9ou-1,[Gen 9] OU,1500,|start\ngen9ou-2,[Gen 9] OU,,|win|p1\n", string(data))
}

func TestWriteExportMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "gen9ou-1.csv")

	err := writeExport(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create export file")
}
