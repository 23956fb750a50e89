package audiosession

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/lk2023060901/mixdeck-go/pkg/util/typeutil"
)

// sessionCache 是 session_id 到会话快照的有界 LRU 映射，不是并发安全的，由 Manager 的锁保护。
//
// 插入新条目会超出容量时，先按最近最少使用的顺序淘汰，直到只剩容量的一半。
type sessionCache struct {
	capacity int
	lru      *simplelru.LRU[string, AudioSession]
}

func newSessionCache(capacity int) *sessionCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c := &sessionCache{capacity: capacity}
	c.lru = c.newLRU()
	return c
}

func (c *sessionCache) newLRU() *simplelru.LRU[string, AudioSession] {
	lru, err := simplelru.NewLRU[string, AudioSession](c.capacity, nil)
	if err != nil {
		panic(err)
	}
	return lru
}

// Upsert 插入或覆盖一条会话，返回因容量不足被淘汰的条目数。
func (c *sessionCache) Upsert(s AudioSession) int {
	pruned := 0
	if !c.lru.Contains(s.SessionID) && c.lru.Len() >= c.capacity {
		pruned = c.pruneTo(c.capacity / 2)
	}
	c.lru.Add(s.SessionID, s)
	return pruned
}

// Get 返回会话拷贝并刷新其最近使用时间。
func (c *sessionCache) Get(id string) (AudioSession, bool) {
	return c.lru.Get(id)
}

// Peek 返回会话拷贝，不影响淘汰顺序。
func (c *sessionCache) Peek(id string) (AudioSession, bool) {
	return c.lru.Peek(id)
}

// Update 修改已存在的条目，条目不存在时返回 false。
func (c *sessionCache) Update(id string, fn func(*AudioSession)) bool {
	s, ok := c.lru.Get(id)
	if !ok {
		return false
	}
	fn(&s)
	c.lru.Add(id, s)
	return true
}

// Retain 淘汰所有不在 live 中的条目，返回淘汰数。
func (c *sessionCache) Retain(live typeutil.Set[string]) int {
	evicted := 0
	for _, id := range c.lru.Keys() {
		if !live.Contain(id) {
			c.lru.Remove(id)
			evicted++
		}
	}
	return evicted
}

// Prune 在超出容量时淘汰到容量的一半。
func (c *sessionCache) Prune() int {
	if c.lru.Len() <= c.capacity {
		return 0
	}
	return c.pruneTo(c.capacity / 2)
}

func (c *sessionCache) pruneTo(target int) int {
	n := 0
	for c.lru.Len() > target {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
		n++
	}
	return n
}

// Snapshot 按从旧到新的顺序返回全部条目的拷贝。
func (c *sessionCache) Snapshot() []AudioSession {
	return c.lru.Values()
}

func (c *sessionCache) Len() int {
	return c.lru.Len()
}

func (c *sessionCache) Cap() int {
	return c.capacity
}

// Reset 清空缓存并释放底层存储。
func (c *sessionCache) Reset() {
	c.lru.Purge()
	c.lru = c.newLRU()
}
