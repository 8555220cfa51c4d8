package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/marksix/internal/model"
)

func sampleDraws() []model.Draw {
	return []model.Draw{
		{
			Year:                     "2024",
			No:                       "1",
			DrawDate:                 "2024-01-02+08:00",
			CloseDate:                "2024-01-02T21:15:00+08:00",
			OpenDate:                 "2023-12-30T09:00:00+08:00",
			Status:                   "Result",
			SnowballCode:             "",
			SnowballName:             "",
			PoolSell:                 "46912345",
			PoolTotalInvestment:      "58234561",
			PoolJackpot:              "",
			PoolEstimatedPrize:       "18000000",
			PoolDerivedFirstPrizeDiv: "9542130",
			Drawn:                    [model.MainNumbers]string{"03", "14", "15", "09", "26", "05"},
			Special:                  "35",
		},
		{
			Year:         "2024",
			No:           "2",
			DrawDate:     "2024-01-04+08:00",
			Status:       "Result",
			SnowballCode: "CNY",
			SnowballName: "新春金多寶, 第一期",
			Drawn:        [model.MainNumbers]string{"01", "23", "07", "", "", ""},
		},
	}
}

func TestCSVStore_LoadMissingFile(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "missing.csv"))

	rows, keys, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, keys)
}

func TestCSVStore_LoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	rows, keys, err := NewCSVStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, keys)
}

func TestCSVStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "marksix.csv")
	store := NewCSVStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleDraws()))

	rows, keys, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleDraws(), rows)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, model.NewDrawKey("2024", "2"))
}

func TestCSVStore_SaveFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marksix.csv")
	require.NoError(t, NewCSVStore(path).Save(context.Background(), sampleDraws()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "marksix_csv", data)
}

func TestCSVStore_SaveReplacesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marksix.csv")
	store := NewCSVStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleDraws()))
	require.NoError(t, store.Save(ctx, sampleDraws()[:1]))

	rows, _, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "marksix.csv", entries[0].Name())
}

func TestCSVStore_SaveFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marksix.csv")
	store := NewCSVStore(path)

	require.NoError(t, store.Save(context.Background(), sampleDraws()))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = store.Save(ctx, nil)
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCSVStore_SaveIntoMissingDirFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := NewCSVStore(filepath.Join(blocker, "marksix.csv")).Save(context.Background(), sampleDraws())
	require.Error(t, err)
}

func TestCSVStore_LoadByHeaderName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reordered.csv")
	content := "\ufeffno,year,drawDate,extra,drawn1,special\n7,2023,2023-05-01,x,09,12\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, keys, err := NewCSVStore(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2023", rows[0].Year)
	assert.Equal(t, "7", rows[0].No)
	assert.Equal(t, "09", rows[0].Drawn[0])
	assert.Equal(t, "", rows[0].Drawn[1])
	assert.Equal(t, "12", rows[0].Special)
	assert.Contains(t, keys, model.NewDrawKey("2023", "7"))
}

func TestCSVStore_LoadBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	_, _, err := NewCSVStore(path).Load(context.Background())
	assert.True(t, errors.Is(err, ErrBadHeader))
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, nil))
	assert.Equal(t, strings.Join(model.Columns, ",")+"\n", sb.String())
}
