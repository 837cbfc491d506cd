package input

import "container/list"

// lruCache caches binding resolutions keyed by Binding.mapKey(), including
// negative (no-match) results, with a bounded capacity and a doubly
// linked list for O(1) most-recently-used eviction.
type lruCache struct {
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key    string
	action *Action // nil means "resolved to no binding"
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (*Action, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).action, true
}

func (c *lruCache) put(key string, action *Action) {
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).action = action
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&lruEntry{key: key, action: action})
	c.items[key] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}

func (c *lruCache) clear() {
	c.ll.Init()
	c.items = make(map[string]*list.Element)
}
