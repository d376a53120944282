package chat

import (
	"sync"
	"time"
)

const (
	antiSpamSweepInterval    = 5 * time.Minute
	prefixSweepInterval      = 30 * time.Second
	placeholderSweepInterval = 30 * time.Second
	mentionSweepInterval     = 5 * time.Minute
	whisperSweepInterval     = 5 * time.Minute
)

type sweepTask struct {
	every time.Duration
	sweep func(now time.Time)
}

// A sweeper periodically runs cache maintenance tasks.
type sweeper struct {
	tasks  []sweepTask
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func newSweeper(tasks ...sweepTask) *sweeper {
	return &sweeper{
		tasks:  tasks,
		stopCh: make(chan struct{}),
	}
}

func (s *sweeper) start() {
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(task)
	}
}

func (s *sweeper) loop(task sweepTask) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			task.sweep(now)
		}
	}
}

func (s *sweeper) stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}
