package scheduler

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("surface.scheduler")

type Task struct {
	Name    string
	Execute func() error
}

func (t Task) run() {
	if err := t.Execute(); err != nil {
		log.Warningf("task %s failed: %s", t.Name, err.Error())
	}
}

type Scheduler struct {
	taskQueue       chan Task
	lowPriorityLock sync.Mutex
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
	periodic        sync.WaitGroup
}

// NewScheduler creates a new Scheduler with the specified queue size
func NewScheduler(queueSize int) *Scheduler {
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
	}
}

// RunScheduler starts the scheduler loop
func (s *Scheduler) RunScheduler() {
	go func() {
		for {
			select {
			case task := <-s.taskQueue:
				log.Debugf("executing %s", task.Name)
				task.run()
				s.wg.Done()
			case <-s.stopChan:
				// drain what was accepted before the stop
				for {
					select {
					case task := <-s.taskQueue:
						log.Debugf("draining %s", task.Name)
						task.run()
						s.wg.Done()
					default:
						return
					}
				}
			}
		}
	}()
}

// SchedulePeriodicTask queues task every interval. A tick is skipped when
// the queue is full.
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, lowTask Task) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)

	s.periodic.Add(1)
	go func() {
		defer s.periodic.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.offer(lowTask)
			case <-s.stopChan:
				return
			}
		}
	}()
}

func (s *Scheduler) offer(task Task) {
	s.lowPriorityLock.Lock()
	defer s.lowPriorityLock.Unlock()

	select {
	case <-s.stopChan:
		return
	default:
	}

	s.wg.Add(1)
	select {
	case s.taskQueue <- task:
		log.Debugf("scheduled %s", task.Name)
	default:
		s.wg.Done()
		log.Debugf("skipped %s, queue is full", task.Name)
	}
}

// ScheduleHighPriorityTask runs a task asap. It reports false once the
// scheduler is stopped.
func (s *Scheduler) ScheduleHighPriorityTask(task Task) bool {
	s.lowPriorityLock.Lock()
	defer s.lowPriorityLock.Unlock()

	select {
	case <-s.stopChan:
		return false
	default:
	}

	s.wg.Add(1)
	s.taskQueue <- task
	return true
}

// StopScheduler waits for all accepted tasks to complete and stops the
// scheduler.
func (s *Scheduler) StopScheduler() {
	s.stopOnce.Do(func() {
		log.Debug("stopping scheduler")
		s.lowPriorityLock.Lock()
		close(s.stopChan)
		s.lowPriorityLock.Unlock()

		s.periodic.Wait()
		s.wg.Wait()
		log.Debug("scheduler stopped")
	})
}
