package chat

import (
	"log"
	"sync"
	"time"
)

// workerPool dispatches messages off the caller's goroutine.
type workerPool struct {
	jobs   chan *Message
	handle func(*Message)
	logger *log.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func newWorkerPool(workers int, handle func(*Message)) *workerPool {
	wp := &workerPool{
		jobs:   make(chan *Message, workers*16),
		handle: handle,
		logger: newLogger("pool"),
	}

	wp.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go wp.work()
	}

	return wp
}

func (wp *workerPool) work() {
	defer wp.wg.Done()

	for msg := range wp.jobs {
		wp.run(msg)
	}
}

func (wp *workerPool) run(msg *Message) {
	watchdog := time.AfterFunc(ChatMsgTimeout, func() {
		wp.logger.Println("message from", msg.Sender.Name(), "is taking long to dispatch")
	})
	defer watchdog.Stop()

	defer func() {
		if r := recover(); r != nil {
			wp.logger.Println("dispatch of message from", msg.Sender.Name(), "panicked:", r)
		}
	}()

	wp.handle(msg)
}

// submit queues a message. It reports false if the pool is closed.
func (wp *workerPool) submit(msg *Message) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}

	wp.jobs <- msg
	return true
}

// close stops accepting messages and waits for queued ones.
func (wp *workerPool) close() {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobs)
	}
	wp.mu.Unlock()

	wp.wg.Wait()
}
