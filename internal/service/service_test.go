package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/marksix/internal/model"
	"github.com/mmeshcher/marksix/internal/repository"
)

type fetchCall struct {
	start string
	end   string
}

type stubSource struct {
	calls []fetchCall
	draws func(start, end string) ([]model.RawDraw, error)
}

func (s *stubSource) FetchDraws(ctx context.Context, start, end string) ([]model.RawDraw, error) {
	s.calls = append(s.calls, fetchCall{start: start, end: end})
	if s.draws == nil {
		return nil, nil
	}
	return s.draws(start, end)
}

type memStore struct {
	rows    []model.Draw
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(ctx context.Context) ([]model.Draw, map[model.DrawKey]struct{}, error) {
	if m.loadErr != nil {
		return nil, nil, m.loadErr
	}
	rows := append([]model.Draw{}, m.rows...)
	keys := make(map[model.DrawKey]struct{}, len(rows))
	for _, d := range rows {
		keys[d.Key()] = struct{}{}
	}
	return rows, keys, nil
}

func (m *memStore) Save(ctx context.Context, rows []model.Draw) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.rows = append([]model.Draw{}, rows...)
	return nil
}

type stubMirror struct {
	calls int
	err   error
}

func (m *stubMirror) MirrorDraws(ctx context.Context, rows []model.Draw) (int, error) {
	m.calls++
	return len(rows), m.err
}

func raw(year, no, date, status string, numbers ...string) model.RawDraw {
	d := model.RawDraw{
		Year:     model.NewScalar(year),
		No:       model.NewScalar(no),
		DrawDate: model.NewScalar(date),
		Status:   model.NewScalar(status),
	}
	if len(numbers) > 0 {
		res := &model.RawResult{XDrawnNo: model.NewScalar("49")}
		for _, n := range numbers {
			res.DrawnNo = append(res.DrawnNo, model.NewScalar(n))
		}
		d.DrawResult = res
	}
	return d
}

func fixedClock(date string) func() time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.Add(15 * time.Hour) }
}

func keysOf(rows []model.Draw) []string {
	out := make([]string, 0, len(rows))
	for _, d := range rows {
		out = append(out, d.Year+"/"+d.No)
	}
	return out
}

func TestFullBackfill_FiltersIneligible(t *testing.T) {
	src := &stubSource{draws: func(start, end string) ([]model.RawDraw, error) {
		return []model.RawDraw{
			raw("2024", "1", "2024-01-02", "Result", "1", "2", "3", "4", "5", "6"),
			raw("2024", "2", "2024-01-04", "Pending"),
			raw("2024", "3", "2024-01-06", "Result", "7", "8", "9", "10", "11", "12"),
		}, nil
	}}
	store := &memStore{}
	svc := NewService(src, store)

	n, err := svc.FullBackfill(context.Background(), 2024, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"2024/1", "2024/3"}, keysOf(store.rows))
	assert.Equal(t, []fetchCall{{start: "2024-01-01", end: "2024-12-31"}}, src.calls)
}

func TestFullBackfill_OneRequestPerYearAndDedup(t *testing.T) {
	src := &stubSource{draws: func(start, end string) ([]model.RawDraw, error) {
		switch start {
		case "2022-01-01":
			return []model.RawDraw{
				raw("2022", "150", "2022-12-31", "Result", "1"),
				raw("2022", "150", "2022-12-31", "Result", "2"),
			}, nil
		case "2023-01-01":
			return []model.RawDraw{
				raw("2023", "2", "2023-01-05", "Result", "3"),
				raw("2022", "150", "2022-12-31", "Result", "4"),
				raw("2023", "1", "2023-01-03", "Result", "5"),
			}, nil
		}
		return nil, nil
	}}
	store := &memStore{rows: []model.Draw{{Year: "1999", No: "1", DrawDate: "1999-01-01"}}}
	svc := NewService(src, store)

	n, err := svc.FullBackfill(context.Background(), 2022, 2024)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, src.calls, 3)
	assert.Equal(t, []string{"2022/150", "2023/1", "2023/2"}, keysOf(store.rows))
	assert.Equal(t, "01", store.rows[0].Drawn[0], "first seen wins")
}

func TestFullBackfill_FailureWritesNothing(t *testing.T) {
	boom := errors.New("timeout")
	src := &stubSource{draws: func(start, end string) ([]model.RawDraw, error) {
		if start == "2023-01-01" {
			return nil, boom
		}
		return []model.RawDraw{raw("2022", "1", "2022-01-02", "Result", "1")}, nil
	}}
	previous := []model.Draw{{Year: "2020", No: "1", DrawDate: "2020-01-02"}}
	store := &memStore{rows: previous}
	mirror := &stubMirror{}
	svc := NewService(src, store, WithMirror(mirror))

	_, err := svc.FullBackfill(context.Background(), 2022, 2024)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, previous, store.rows)
	assert.Equal(t, 0, mirror.calls)
	assert.Len(t, src.calls, 2, "backfill stops at the first failure")
}

func TestFullBackfill_InvalidRange(t *testing.T) {
	svc := NewService(&stubSource{}, &memStore{})

	_, err := svc.FullBackfill(context.Background(), 2025, 2024)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestIncrementalUpdate_AppendsNewAndSkipsKnown(t *testing.T) {
	store := &memStore{rows: []model.Draw{
		{Year: "2024", No: "1", DrawDate: "2024-01-04", Status: "Result"},
	}}
	src := &stubSource{draws: func(start, end string) ([]model.RawDraw, error) {
		return []model.RawDraw{
			raw("2024", "2", "2024-01-11", "Result", "1", "23", "7"),
			raw("2024", "1", "2024-01-04", "Result", "9", "9", "9"),
		}, nil
	}}
	svc := NewService(src, store, WithClock(fixedClock("2024-01-12")))

	n, err := svc.IncrementalUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []fetchCall{{start: "2023-12-21", end: "2024-01-19"}}, src.calls)
	assert.Equal(t, []string{"2024/1", "2024/2"}, keysOf(store.rows))
	assert.Equal(t, "", store.rows[0].Drawn[0], "stored draws are not modified")
	assert.Equal(t, [model.MainNumbers]string{"01", "23", "07", "", "", ""}, store.rows[1].Drawn)
}

func TestIncrementalUpdate_EmptyStoreUsesEpochFloor(t *testing.T) {
	store := &memStore{}
	src := &stubSource{}
	svc := NewService(src, store, WithClock(fixedClock("2024-06-01")))

	n, err := svc.IncrementalUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []fetchCall{{start: "1992-12-18", end: "2024-06-08"}}, src.calls)
	assert.Equal(t, 1, store.saves)
}

func TestIncrementalUpdate_UnparsableDatesUseEpochFloor(t *testing.T) {
	store := &memStore{rows: []model.Draw{{Year: "2024", No: "1", DrawDate: "n/a"}}}
	src := &stubSource{}
	svc := NewService(src, store, WithClock(fixedClock("2024-06-01")))

	_, err := svc.IncrementalUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1992-12-18", src.calls[0].start)
}

func TestIncrementalUpdate_FailureLeavesStore(t *testing.T) {
	boom := errors.New("connection refused")
	previous := []model.Draw{{Year: "2024", No: "1", DrawDate: "2024-01-04"}}
	store := &memStore{rows: previous}
	src := &stubSource{draws: func(start, end string) ([]model.RawDraw, error) {
		return nil, boom
	}}
	svc := NewService(src, store)

	n, err := svc.IncrementalUpdate(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, previous, store.rows)
}

func TestIncrementalUpdate_LoadAndSaveErrors(t *testing.T) {
	loadErr := errors.New("permission denied")
	svc := NewService(&stubSource{}, &memStore{loadErr: loadErr})
	_, err := svc.IncrementalUpdate(context.Background())
	assert.ErrorIs(t, err, loadErr)

	saveErr := errors.New("disk full")
	src := &stubSource{draws: func(start, end string) ([]model.RawDraw, error) {
		return []model.RawDraw{raw("2024", "1", "2024-01-02", "Result", "1")}, nil
	}}
	svc = NewService(src, &memStore{saveErr: saveErr})
	n, err := svc.IncrementalUpdate(context.Background())
	assert.ErrorIs(t, err, saveErr)
	assert.Equal(t, 0, n)
}

func TestIncrementalUpdate_MirrorFailureDoesNotFailSync(t *testing.T) {
	src := &stubSource{draws: func(start, end string) ([]model.RawDraw, error) {
		return []model.RawDraw{raw("2024", "1", "2024-01-02", "Result", "1")}, nil
	}}
	mirror := &stubMirror{err: errors.New("db down")}
	store := &memStore{}
	svc := NewService(src, store, WithMirror(mirror))

	n, err := svc.IncrementalUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, mirror.calls)
	assert.Len(t, store.rows, 1)
}

func TestIncrementalUpdate_IdempotentOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marksix.csv")
	store := repository.NewCSVStore(path)
	src := &stubSource{draws: func(start, end string) ([]model.RawDraw, error) {
		return []model.RawDraw{
			raw("2024", "3", "2024-01-09", "Result", "4", "5", "6"),
			raw("2024", "1", "2024-01-02", "Result", "1", "2", "3"),
			raw("2024", "2", "2024-01-04", "Draw"),
		}, nil
	}}
	svc := NewService(src, store, WithClock(fixedClock("2024-01-10")))
	ctx := context.Background()

	n, err := svc.IncrementalUpdate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, _, err := store.Load(ctx)
	require.NoError(t, err)

	n, err = svc.IncrementalUpdate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	second, _, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"2024/1", "2024/3"}, keysOf(second))
	assert.Equal(t, "2023-12-26", src.calls[1].start)
}

func TestDraws(t *testing.T) {
	store := &memStore{rows: []model.Draw{{Year: "2024", No: "1"}}}
	svc := NewService(&stubSource{}, store)

	rows, err := svc.Draws(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWindow(t *testing.T) {
	rows := []model.Draw{
		{DrawDate: "2024-01-04+08:00"},
		{DrawDate: "2024-03-01T21:30:00+08:00"},
		{DrawDate: "broken"},
		{DrawDate: ""},
	}
	start, end := Window(rows, time.Date(2024, 3, 2, 23, 0, 0, 0, time.Local))
	assert.Equal(t, "2024-02-16", start.Format("2006-01-02"))
	assert.Equal(t, "2024-03-09", end.Format("2006-01-02"))
}
