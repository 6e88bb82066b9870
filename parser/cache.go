package parser

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/Velocidex/ordereddict"
)

// LRU is a fixed-capacity, integer-keyed least-recently-used cache.
// None of the pack's third-party dependencies offer one (no cache
// library appears anywhere in the corpus), so this is a small
// container/list-backed implementation in the style of the pack's own
// hand-rolled PagedReader page cache.
type LRU struct {
	mu sync.Mutex

	name     string
	size     int
	onEvict  func(key int, value interface{})
	ll       *list.List
	elements map[int]*list.Element

	hits   int64
	misses int64
}

type lru_entry struct {
	key   int
	value interface{}
}

func NewLRU(size int, onEvict func(key int, value interface{}), name string) (*LRU, error) {
	if size <= 0 {
		size = 1
	}

	return &LRU{
		name:     name,
		size:     size,
		onEvict:  onEvict,
		ll:       list.New(),
		elements: make(map[int]*list.Element),
	}, nil
}

func (self *LRU) Get(key int) (interface{}, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()

	element, pres := self.elements[key]
	if !pres {
		self.misses++
		return nil, false
	}

	self.hits++
	self.ll.MoveToFront(element)
	return element.Value.(*lru_entry).value, true
}

func (self *LRU) Add(key int, value interface{}) {
	self.mu.Lock()
	defer self.mu.Unlock()

	if element, pres := self.elements[key]; pres {
		self.ll.MoveToFront(element)
		element.Value.(*lru_entry).value = value
		return
	}

	element := self.ll.PushFront(&lru_entry{key: key, value: value})
	self.elements[key] = element

	for self.ll.Len() > self.size {
		self.removeOldest()
	}
}

func (self *LRU) removeOldest() {
	element := self.ll.Back()
	if element == nil {
		return
	}

	self.ll.Remove(element)
	entry := element.Value.(*lru_entry)
	delete(self.elements, entry.key)

	if self.onEvict != nil {
		self.onEvict(entry.key, entry.value)
	}
}

func (self *LRU) Purge() {
	self.mu.Lock()
	defer self.mu.Unlock()

	for {
		element := self.ll.Back()
		if element == nil {
			break
		}
		self.ll.Remove(element)
		entry := element.Value.(*lru_entry)
		delete(self.elements, entry.key)

		if self.onEvict != nil {
			self.onEvict(entry.key, entry.value)
		}
	}
}

func (self *LRU) Len() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.ll.Len()
}

func (self *LRU) Stats() *ordereddict.Dict {
	self.mu.Lock()
	defer self.mu.Unlock()

	return ordereddict.NewDict().
		Set("Name", self.name).
		Set("Size", self.size).
		Set("Len", self.ll.Len()).
		Set("Hits", self.hits).
		Set("Misses", self.misses)
}

func (self *LRU) DebugString() string {
	return fmt.Sprintf("LRU %v: %v", self.name, self.Stats())
}
