// Package scheduler запускает периодическую задачу с фиксированной паузой между запусками.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MinInterval минимальная пауза между запусками.
const MinInterval = time.Second

// RunFunc выполняет одну итерацию задачи и возвращает число обработанных записей.
type RunFunc func(ctx context.Context) (int, error)

// Task периодически выполняет RunFunc: запуск, пауза Interval, снова запуск.
// Ошибка или паника одной итерации журналируется и не останавливает цикл.
type Task struct {
	name     string
	interval time.Duration
	run      RunFunc
	logger   *zap.Logger

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	runs    int
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New создаёт задачу. Интервал меньше MinInterval приводится к MinInterval.
func New(name string, interval time.Duration, run RunFunc, logger *zap.Logger) *Task {
	if interval < MinInterval {
		interval = MinInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		name:     name,
		interval: interval,
		run:      run,
		logger:   logger,
	}
}

// Interval возвращает паузу между запусками.
func (t *Task) Interval() time.Duration {
	return t.interval
}

// Start выполняет задачу сразу и затем после каждой паузы, пока не отменён ctx или не вызван Stop.
// Блокирует вызывающего.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	t.running = true
	t.cancel = cancel
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	defer func() {
		cancel()
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		close(done)
	}()

	t.logger.Info("scheduled task started", zap.String("task", t.name), zap.Duration("interval", t.interval))

	for {
		t.tick(ctx)

		timer := time.NewTimer(t.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.logger.Info("scheduled task stopped", zap.String("task", t.name))
			return
		case <-timer.C:
		}
	}
}

// Stop останавливает запущенную задачу и ждёт завершения текущей итерации.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	running := t.running
	t.mu.Unlock()

	if !running || cancel == nil {
		return
	}
	cancel()
	<-done
}

// LastRun возвращает время начала последней итерации.
func (t *Task) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRun
}

// LastError возвращает ошибку последней итерации или nil.
func (t *Task) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Runs возвращает число выполненных итераций.
func (t *Task) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

func (t *Task) tick(ctx context.Context) {
	started := time.Now()

	n, err := t.safeRun(ctx)

	t.mu.Lock()
	t.lastRun = started
	t.lastErr = err
	t.runs++
	t.mu.Unlock()

	if err != nil {
		t.logger.Error("scheduled task failed",
			zap.String("task", t.name),
			zap.Time("at", started),
			zap.Error(err),
		)
	} else {
		t.logger.Info("scheduled task finished",
			zap.String("task", t.name),
			zap.Time("at", started),
			zap.Int("count", n),
			zap.Duration("took", time.Since(started)),
		)
	}
}

func (t *Task) safeRun(ctx context.Context) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.run(ctx)
}
