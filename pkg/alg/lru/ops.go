package lru

// Get retrieves a value and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	ent, ok := c.entries[key]
	if !ok {
		c.misses++

		var zero V

		return zero, false
	}

	c.hits++
	c.moveToFront(ent)

	return ent.value, true
}

// Peek retrieves a value without touching recency or statistics.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	ent, ok := c.entries[key]
	if !ok {
		var zero V

		return zero, false
	}

	return ent.value, true
}

// Put adds or updates a key-value pair, evicting the least recently used
// entries when the limit is reached.
func (c *Cache[K, V]) Put(key K, value V) {
	if ent, ok := c.entries[key]; ok {
		ent.value = value
		c.moveToFront(ent)

		return
	}

	for c.maxEntries > 0 && len(c.entries) >= c.maxEntries && c.tail != nil {
		c.evictTail()
	}

	ent := &entry[K, V]{key: key, value: value}
	c.entries[key] = ent
	c.addToFront(ent)
}

// Remove deletes a key and reports whether it was present.
func (c *Cache[K, V]) Remove(key K) bool {
	ent, ok := c.entries[key]
	if !ok {
		return false
	}

	c.removeFromList(ent)
	delete(c.entries, key)

	return true
}

// Keys returns the keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.entries))
	for ent := c.head; ent != nil; ent = ent.next {
		keys = append(keys, ent.key)
	}

	return keys
}

// Clear removes all entries. Statistics are kept.
func (c *Cache[K, V]) Clear() {
	c.entries = make(map[K]*entry[K, V])
	c.head = nil
	c.tail = nil
}

// evictTail removes the least recently used entry.
func (c *Cache[K, V]) evictTail() {
	victim := c.tail
	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.evictions++

	if c.onEvict != nil {
		c.onEvict(victim.key, victim.value)
	}
}

// moveToFront moves an entry to the head of the LRU list.
func (c *Cache[K, V]) moveToFront(ent *entry[K, V]) {
	if ent == c.head {
		return
	}

	c.removeFromList(ent)
	c.addToFront(ent)
}

// addToFront adds an entry at the head of the LRU list.
func (c *Cache[K, V]) addToFront(ent *entry[K, V]) {
	ent.prev = nil
	ent.next = c.head

	if c.head != nil {
		c.head.prev = ent
	}

	c.head = ent

	if c.tail == nil {
		c.tail = ent
	}
}

// removeFromList removes an entry from the LRU list.
func (c *Cache[K, V]) removeFromList(ent *entry[K, V]) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.head = ent.next
	}

	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.tail = ent.prev
	}

	ent.prev = nil
	ent.next = nil
}
