package chat

import (
	"log"
	"sync"
)

// A Scheduler runs tasks on the host's ordered execution context.
// Tasks scheduled by one goroutine run in scheduling order.
type Scheduler interface {
	Schedule(task func())
}

// A Pump is a Scheduler that runs tasks on a single goroutine.
type Pump struct {
	tasks chan func()
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewPump returns a Pump whose queue holds size pending tasks.
func NewPump(size int) *Pump {
	return &Pump{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Schedule enqueues a task. It blocks while the queue is full
// and drops the task if the Pump is closed.
func (p *Pump) Schedule(task func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	p.tasks <- task
}

// Run executes tasks until the Pump is closed
// and every queued task has run.
func (p *Pump) Run() {
	defer close(p.done)

	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pump) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Print("{←|⇶} scheduled task panicked: ", r)
		}
	}()

	task()
}

// Close stops accepting tasks and waits for Run to return.
// Run must have been started.
func (p *Pump) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	<-p.done
}
