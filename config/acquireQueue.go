package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// AcquireTask represents a single catalog acquisition job
type AcquireTask struct {
	ID            string // unique ID for this task
	Source        string // registered source name
	Request       *AcquireRequest
	Status        string  // "queued", "running", "completed", "cancelled", "failed"
	Progress      float64 // 0.0 to 1.0
	StatusMessage string
	CancelFunc    context.CancelFunc
	Error         error

	// Chapter tracking
	ChaptersDone  int
	ChaptersTotal int
}

// AcquireQueue manages a FIFO queue of acquisition jobs. Jobs run one at a
// time; within a job, the fetchers decide their own parallelism.
type AcquireQueue struct {
	tasks        []*AcquireTask
	mu           sync.RWMutex
	processing   bool
	processingMu sync.Mutex

	// Callbacks for observers (CLI progress display, UI)
	onTaskAdded   func(*AcquireTask)
	onTaskUpdated func(*AcquireTask)
	onTaskRemoved func(string)
	onQueueEmpty  func()
}

// Global queue instance
var globalQueue *AcquireQueue
var queueOnce sync.Once

// GetAcquireQueue returns the singleton acquisition queue
func GetAcquireQueue() *AcquireQueue {
	queueOnce.Do(func() {
		globalQueue = &AcquireQueue{
			tasks: make([]*AcquireTask, 0),
		}
	})
	return globalQueue
}

// SetCallbacks sets the observer callbacks
func (q *AcquireQueue) SetCallbacks(
	onAdded func(*AcquireTask),
	onUpdated func(*AcquireTask),
	onRemoved func(string),
	onEmpty func(),
) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.onTaskAdded = onAdded
	q.onTaskUpdated = onUpdated
	q.onTaskRemoved = onRemoved
	q.onQueueEmpty = onEmpty
}

// AddTask queues an acquisition job for the named source
func (q *AcquireQueue) AddTask(source string, req *AcquireRequest) (*AcquireTask, error) {
	q.mu.Lock()

	// Check if this catalog is already in queue
	for _, task := range q.tasks {
		if task.Request.URL == req.URL && (task.Status == "queued" || task.Status == "running") {
			q.mu.Unlock()
			return nil, fmt.Errorf("catalog '%s' is already in the queue", req.URL)
		}
	}

	task := &AcquireTask{
		ID:            uuid.NewString(),
		Source:        source,
		Request:       req,
		Status:        "queued",
		StatusMessage: "Waiting in queue...",
		Progress:      0.0,
	}

	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	log.Printf("[Queue] Added task: %s (%s)", req.URL, task.ID)

	if q.onTaskAdded != nil {
		q.onTaskAdded(task)
	}

	// Start processing if not already running
	go q.processQueue()

	return task, nil
}

// GetTasks returns a copy of all tasks
func (q *AcquireQueue) GetTasks() []*AcquireTask {
	q.mu.RLock()
	defer q.mu.RUnlock()

	tasksCopy := make([]*AcquireTask, len(q.tasks))
	copy(tasksCopy, q.tasks)
	return tasksCopy
}

// GetTask returns a specific task by ID
func (q *AcquireQueue) GetTask(id string) *AcquireTask {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, task := range q.tasks {
		if task.ID == id {
			return task
		}
	}
	return nil
}

// CancelTask cancels a specific task (either running or queued). Cancelling
// a running task unblocks any pending backoff delay and in-flight batch
// fetches; chapters merged before cancellation stay merged.
func (q *AcquireQueue) CancelTask(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, task := range q.tasks {
		if task.ID == id {
			if task.Status == "running" && task.CancelFunc != nil {
				log.Printf("[Queue] Cancelling active job: %s", task.Request.URL)
				task.CancelFunc()
				task.Status = "cancelled"
				task.StatusMessage = "Cancelled by user"
			} else if task.Status == "queued" {
				log.Printf("[Queue] Removing queued task: %s", task.Request.URL)
				q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)

				if q.onTaskRemoved != nil {
					q.onTaskRemoved(id)
				}
				return nil
			} else {
				return fmt.Errorf("task is not active or queued (status: %s)", task.Status)
			}

			if q.onTaskUpdated != nil {
				q.onTaskUpdated(task)
			}
			return nil
		}
	}

	return fmt.Errorf("task not found: %s", id)
}

// CancelAll cancels all tasks
func (q *AcquireQueue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	log.Printf("[Queue] Cancelling all tasks (%d total)", len(q.tasks))

	for _, task := range q.tasks {
		if task.Status == "running" && task.CancelFunc != nil {
			task.CancelFunc()
			task.Status = "cancelled"
			task.StatusMessage = "Cancelled by user"
		} else if task.Status == "queued" {
			task.Status = "cancelled"
			task.StatusMessage = "Cancelled by user"
		}

		if q.onTaskUpdated != nil {
			q.onTaskUpdated(task)
		}
	}
}

// RemoveCompletedTasks removes all completed, failed or cancelled tasks
func (q *AcquireQueue) RemoveCompletedTasks() {
	q.mu.Lock()
	defer q.mu.Unlock()

	newTasks := make([]*AcquireTask, 0)
	for _, task := range q.tasks {
		if task.Status == "queued" || task.Status == "running" {
			newTasks = append(newTasks, task)
		} else {
			if q.onTaskRemoved != nil {
				q.onTaskRemoved(task.ID)
			}
		}
	}

	q.tasks = newTasks
	log.Printf("[Queue] Cleaned up completed tasks, %d remaining", len(q.tasks))
}

// processQueue processes tasks in FIFO order
func (q *AcquireQueue) processQueue() {
	q.processingMu.Lock()
	if q.processing {
		q.processingMu.Unlock()
		return // Already processing
	}
	q.processing = true
	q.processingMu.Unlock()

	defer func() {
		q.processingMu.Lock()
		q.processing = false
		q.processingMu.Unlock()
	}()

	for {
		task := q.getNextTask()
		if task == nil {
			log.Println("[Queue] No more tasks to process")
			if q.onQueueEmpty != nil {
				q.onQueueEmpty()
			}
			break
		}

		log.Printf("[Queue] Processing task: %s", task.Request.URL)
		q.executeTask(task)
	}
}

// getNextTask gets the next queued task
func (q *AcquireQueue) getNextTask() *AcquireTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, task := range q.tasks {
		if task.Status == "queued" {
			return task
		}
	}
	return nil
}

// executeTask runs one acquisition job through the source dispatcher
func (q *AcquireQueue) executeTask(task *AcquireTask) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q.mu.Lock()
	task.Status = "running"
	task.StatusMessage = "Resolving catalog..."
	task.CancelFunc = cancel
	q.mu.Unlock()

	if q.onTaskUpdated != nil {
		q.onTaskUpdated(task)
	}

	progress := func(status string, fraction float64, done, total int) {
		q.mu.Lock()
		task.Progress = fraction
		task.StatusMessage = status
		task.ChaptersDone = done
		task.ChaptersTotal = total
		q.mu.Unlock()

		if q.onTaskUpdated != nil {
			q.onTaskUpdated(task)
		}
	}

	err := ExecuteSourceFetch(ctx, task.Source, task.Request, progress)

	q.mu.Lock()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			task.Status = "cancelled"
			task.StatusMessage = "Cancelled by user"
		} else {
			task.Status = "failed"
			task.StatusMessage = fmt.Sprintf("Error: %v", err)
			task.Error = err
		}
	} else {
		task.Status = "completed"
		task.StatusMessage = "Acquisition complete"
		task.Progress = 1.0
	}
	task.CancelFunc = nil
	q.mu.Unlock()

	if q.onTaskUpdated != nil {
		q.onTaskUpdated(task)
	}

	log.Printf("[Queue] Task completed: %s (status: %s)", task.Request.URL, task.Status)
}
