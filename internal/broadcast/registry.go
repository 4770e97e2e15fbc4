package broadcast

import (
	"slices"
	"sync"
)

// Registry owns the live connection set and the topic index. One lock guards
// both the index and every client's own subscription set, so the two views
// can never disagree. No I/O happens under the lock.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	topics  map[int64]map[*Client]struct{}

	// observe receives the connection and topic counts after each mutation.
	// It runs under mu so reports arrive in mutation order, and must not block.
	observe func(connections, topics int)
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]struct{}),
		topics:  make(map[int64]map[*Client]struct{}),
	}
}

// Register adds c to the live set. Returns false if it was already present.
func (r *Registry) Register(c *Client) bool {
	r.mu.Lock()
	if _, exists := r.clients[c]; exists {
		r.mu.Unlock()
		return false
	}
	r.clients[c] = struct{}{}
	r.notify()
	r.mu.Unlock()
	return true
}

// Unregister removes c from the live set and from every topic it joined.
// Returns false if c was not registered.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	if _, exists := r.clients[c]; !exists {
		r.mu.Unlock()
		return false
	}
	delete(r.clients, c)
	for topic := range c.subscriptions {
		r.removeSubscriber(topic, c)
	}
	c.subscriptions = make(map[int64]struct{})
	r.notify()
	r.mu.Unlock()
	return true
}

// Subscribe joins c to topic. Idempotent. Returns false if c is not registered,
// which happens when a frame races with eviction.
func (r *Registry) Subscribe(c *Client, topic int64) bool {
	r.mu.Lock()
	if _, exists := r.clients[c]; !exists {
		r.mu.Unlock()
		return false
	}

	subscribers, exists := r.topics[topic]
	if !exists {
		subscribers = make(map[*Client]struct{})
		r.topics[topic] = subscribers
	}
	subscribers[c] = struct{}{}
	c.subscriptions[topic] = struct{}{}
	r.notify()
	r.mu.Unlock()
	return true
}

// Unsubscribe removes c from topic. Idempotent.
func (r *Registry) Unsubscribe(c *Client, topic int64) {
	r.mu.Lock()
	if _, subscribed := c.subscriptions[topic]; !subscribed {
		r.mu.Unlock()
		return
	}
	delete(c.subscriptions, topic)
	r.removeSubscriber(topic, c)
	r.notify()
	r.mu.Unlock()
}

// removeSubscriber must be called with mu held.
func (r *Registry) removeSubscriber(topic int64, c *Client) {
	subscribers, exists := r.topics[topic]
	if !exists {
		return
	}
	delete(subscribers, c)
	if len(subscribers) == 0 {
		delete(r.topics, topic)
	}
}

// SubscribersOf returns a snapshot of the clients subscribed to topic.
func (r *Registry) SubscribersOf(topic int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscribers := r.topics[topic]
	out := make([]*Client, 0, len(subscribers))
	for c := range subscribers {
		out = append(out, c)
	}
	return out
}

// AllConnections returns a snapshot of every registered client.
func (r *Registry) AllConnections() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Subscriptions returns the topics c is subscribed to, sorted.
func (r *Registry) Subscriptions(c *Client) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedTopics(c.subscriptions)
}

// Topics returns every topic with at least one subscriber, sorted.
func (r *Registry) Topics() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int64, 0, len(r.topics))
	for topic := range r.topics {
		out = append(out, topic)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) Contains(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.clients[c]
	return exists
}

func (r *Registry) Counts() (connections, topics int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients), len(r.topics)
}

// notify must be called with mu held.
func (r *Registry) notify() {
	if r.observe != nil {
		r.observe(len(r.clients), len(r.topics))
	}
}

func sortedTopics(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for topic := range set {
		out = append(out, topic)
	}
	slices.Sort(out)
	return out
}
