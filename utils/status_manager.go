package utils

import "sync"

const (
	// Init 会话初始化状态，可以接受launch请求
	Init = "init"
	// Launching 正在启动用户程序
	Launching = "launching"
	// Launched 用户程序已启动
	Launched = "launched"
	// Finish 调试结束状态
	Finish = "finish"
)

// StatusManager 记录调试会话的状态
type StatusManager struct {
	lock   sync.RWMutex
	status string
}

func NewStatusManager() *StatusManager {
	return &StatusManager{
		status: Init,
	}
}

func (s *StatusManager) Set(status string) {
	defer s.lock.Unlock()
	s.lock.Lock()
	s.status = status
}

func (s *StatusManager) Get() string {
	defer s.lock.RUnlock()
	s.lock.RLock()
	return s.status
}

// CompareAndSet 只有当前状态为from时才切换到to
func (s *StatusManager) CompareAndSet(from, to string) bool {
	defer s.lock.Unlock()
	s.lock.Lock()
	if s.status != from {
		return false
	}
	s.status = to
	return true
}

func (s *StatusManager) Is(statusList ...string) bool {
	defer s.lock.RUnlock()
	s.lock.RLock()
	for _, status := range statusList {
		if s.status == status {
			return true
		}
	}
	return false
}
