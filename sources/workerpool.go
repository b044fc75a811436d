package sources

// workerPool bounds concurrent chapter decodes with a semaphore pattern
type workerPool struct {
	semaphore chan struct{}
}

// newWorkerPool creates a worker pool with the specified limit
func newWorkerPool(limit int) *workerPool {
	if limit < 1 {
		limit = 1
	}
	return &workerPool{
		semaphore: make(chan struct{}, limit),
	}
}

// Acquire blocks until a worker slot is available
func (p *workerPool) Acquire() {
	p.semaphore <- struct{}{}
}

// Release frees up a worker slot
func (p *workerPool) Release() {
	<-p.semaphore
}
