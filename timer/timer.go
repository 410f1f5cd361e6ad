// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task 定时任务，Interval > 0 时周期重复
type Task struct {
	ID       int64
	RunAt    time.Time
	Interval time.Duration
	fn       func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].RunAt.Before(q[j].RunAt)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*Task)
	task.index = n
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Manager 基于最小堆的定时任务调度器
type Manager struct {
	queue  taskQueue
	mutex  sync.Mutex
	nextID int64
	stop   chan struct{}
	once   sync.Once
}

func NewManager() *Manager {
	manager := &Manager{
		queue:  make(taskQueue, 0),
		nextID: 1,
		stop:   make(chan struct{}),
	}
	heap.Init(&manager.queue)
	go manager.process()
	return manager
}

// Schedule 注册任务，interval 为 0 表示只执行一次，返回任务ID
func (m *Manager) Schedule(delay time.Duration, interval time.Duration, fn func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &Task{
		ID:       m.nextID,
		RunAt:    time.Now().Add(delay),
		Interval: interval,
		fn:       fn,
	}
	m.nextID++

	heap.Push(&m.queue, task)
	return task.ID
}

// Cancel 取消尚未执行的任务
func (m *Manager) Cancel(taskID int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, task := range m.queue {
		if task.ID == taskID {
			heap.Remove(&m.queue, i)
			break
		}
	}
}

// Stop 停止调度循环，已触发的回调不受影响
func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stop)
	})
}

func (m *Manager) process() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mutex.Lock()
			now := time.Now()

			var due []*Task
			for m.queue.Len() > 0 {
				task := m.queue[0]
				if task.RunAt.After(now) {
					break
				}

				heap.Pop(&m.queue)
				due = append(due, task)

				if task.Interval > 0 {
					task.RunAt = now.Add(task.Interval)
					heap.Push(&m.queue, task)
				}
			}
			m.mutex.Unlock()

			// 回调在锁外执行，慢任务不会阻塞调度
			for _, task := range due {
				go task.fn()
			}

		case <-m.stop:
			return
		}
	}
}
