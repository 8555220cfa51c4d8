// Package service реализует синхронизацию архива тиражей с удалённым API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marksix/internal/model"
	"github.com/mmeshcher/marksix/internal/normalize"
)

const (
	// LookBack окно назад от последней известной даты: ловит тиражи, получившие результат после прошлой синхронизации.
	LookBack = 14 * 24 * time.Hour
	// LookAhead окно вперёд от текущей даты на случай расхождения часов.
	LookAhead = 7 * 24 * time.Hour
)

// EpochFloor самая ранняя возможная дата тиража.
var EpochFloor = time.Date(1993, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrInvalidRange возвращается, если начальный год больше конечного.
var ErrInvalidRange = errors.New("start year is after end year")

// Source описывает удалённый источник тиражей.
type Source interface {
	FetchDraws(ctx context.Context, startDate, endDate string) ([]model.RawDraw, error)
}

// Store описывает хранилище архива.
type Store interface {
	Load(ctx context.Context) ([]model.Draw, map[model.DrawKey]struct{}, error)
	Save(ctx context.Context, rows []model.Draw) error
}

// Mirror получает копию архива после каждой успешной записи.
type Mirror interface {
	MirrorDraws(ctx context.Context, rows []model.Draw) (int, error)
}

// Service синхронизирует архив тиражей. Запись выполняется только через один экземпляр Service.
type Service struct {
	source Source
	store  Store
	mirror Mirror
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option настраивает Service.
type Option func(*Service)

// WithMirror подключает зеркало архива.
func WithMirror(m Mirror) Option {
	return func(s *Service) {
		s.mirror = m
	}
}

// WithLogger задаёт журнал сервиса.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис синхронизации для источника и хранилища.
func NewService(source Source, store Store, opts ...Option) *Service {
	s := &Service{
		source: source,
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FullBackfill загружает тиражи за годы [startYear, endYear] и полностью заменяет архив.
// Любая ошибка запроса прерывает загрузку до записи. Возвращает число записанных строк.
func (s *Service) FullBackfill(ctx context.Context, startYear, endYear int) (int, error) {
	if startYear > endYear {
		return 0, fmt.Errorf("%w: %d > %d", ErrInvalidRange, startYear, endYear)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []model.Draw{}
	keys := make(map[model.DrawKey]struct{})

	for year := startYear; year <= endYear; year++ {
		start := fmt.Sprintf("%04d-01-01", year)
		end := fmt.Sprintf("%04d-12-31", year)

		raws, err := s.source.FetchDraws(ctx, start, end)
		if err != nil {
			return 0, fmt.Errorf("fetch draws for %d: %w", year, err)
		}

		added := merge(&rows, keys, raws)
		s.logger.Debug("backfill year fetched",
			zap.Int("year", year),
			zap.Int("received", len(raws)),
			zap.Int("added", added),
		)
	}

	SortDraws(rows)

	if err := s.store.Save(ctx, rows); err != nil {
		return 0, fmt.Errorf("save store: %w", err)
	}

	s.mirrorRows(ctx, rows)

	s.logger.Info("backfill completed",
		zap.Int("startYear", startYear),
		zap.Int("endYear", endYear),
		zap.Int("rows", len(rows)),
	)

	return len(rows), nil
}

// IncrementalUpdate догружает тиражи начиная с последней известной даты и возвращает число новых строк.
// При ошибке запроса архив не изменяется.
func (s *Service) IncrementalUpdate(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, keys, err := s.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load store: %w", err)
	}

	start, end := Window(rows, s.now())

	raws, err := s.source.FetchDraws(ctx, normalize.FormatDate(start), normalize.FormatDate(end))
	if err != nil {
		return 0, fmt.Errorf("fetch draws: %w", err)
	}

	appended := merge(&rows, keys, raws)

	SortDraws(rows)

	if err := s.store.Save(ctx, rows); err != nil {
		return 0, fmt.Errorf("save store: %w", err)
	}

	s.mirrorRows(ctx, rows)

	s.logger.Info("update completed",
		zap.String("start", normalize.FormatDate(start)),
		zap.String("end", normalize.FormatDate(end)),
		zap.Int("received", len(raws)),
		zap.Int("appended", appended),
		zap.Int("rows", len(rows)),
	)

	return appended, nil
}

// Draws возвращает текущее содержимое архива.
func (s *Service) Draws(ctx context.Context) ([]model.Draw, error) {
	rows, _, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return rows, nil
}

// Window вычисляет окно догрузки: [последняя дата − LookBack, сегодня + LookAhead].
// Если ни у одной строки дата не разбирается, отсчёт идёт от EpochFloor.
func Window(rows []model.Draw, now time.Time) (time.Time, time.Time) {
	last, ok := LastDrawDate(rows)
	if !ok {
		last = EpochFloor
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return last.Add(-LookBack), today.Add(LookAhead)
}

// LastDrawDate возвращает наибольшую дату тиража среди строк.
func LastDrawDate(rows []model.Draw) (time.Time, bool) {
	var last time.Time
	found := false
	for _, d := range rows {
		dt, ok := normalize.ParseDate(d.DrawDate)
		if !ok {
			continue
		}
		if !found || dt.After(last) {
			last = dt
			found = true
		}
	}
	return last, found
}

// merge добавляет пригодные тиражи, которых ещё нет в keys. Побеждает первый встреченный.
func merge(rows *[]model.Draw, keys map[model.DrawKey]struct{}, raws []model.RawDraw) int {
	added := 0
	for _, raw := range normalize.Filter(raws) {
		d := normalize.Draw(raw)
		key := d.Key()
		if _, ok := keys[key]; ok {
			continue
		}
		keys[key] = struct{}{}
		*rows = append(*rows, d)
		added++
	}
	return added
}

func (s *Service) mirrorRows(ctx context.Context, rows []model.Draw) {
	if s.mirror == nil {
		return
	}

	inserted, err := s.mirror.MirrorDraws(ctx, rows)
	if err != nil {
		s.logger.Warn("mirror draws error", zap.Error(err), zap.Int("inserted", inserted))
		return
	}
	if inserted > 0 {
		s.logger.Info("mirrored draws", zap.Int("inserted", inserted))
	}
}
