package mixer

import "sync"

// Scope 收集作用域内获取的混音器对象，Close 时按获取顺序的逆序释放。
//
//	scope := mixer.NewScope()
//	defer scope.Close()
//	devices, err := enum.ActiveRenderDevices()
//	if err != nil {
//		return err
//	}
//	mixer.KeepAll(scope, devices)
type Scope struct {
	mu     sync.Mutex
	items  []Releaser
	closed bool
}

func NewScope() *Scope {
	return &Scope{}
}

// Add 登记一个对象，nil 会被忽略。作用域已关闭时立即释放。
func (s *Scope) Add(r Releaser) {
	if r == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		r.Release()
		return
	}
	s.items = append(s.items, r)
	s.mu.Unlock()
}

// Len 返回尚未释放的对象数量。
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close 逆序释放全部对象，可重复调用。
func (s *Scope) Close() {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.closed = true
	s.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Release()
	}
}

// Keep 登记 r 并原样返回，便于在表达式中使用。
func Keep[T Releaser](s *Scope, r T) T {
	s.Add(r)
	return r
}

// KeepAll 登记切片中的全部对象。
func KeepAll[T Releaser](s *Scope, rs []T) []T {
	for _, r := range rs {
		s.Add(r)
	}
	return rs
}
