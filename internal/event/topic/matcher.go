package topic

import "sync"

// Matcher resolves a concrete kind to the registered patterns that accept it.
// It is safe for concurrent use.
type Matcher struct {
	mu   sync.RWMutex
	root *node
}

type node struct {
	children map[string]*node
	pattern  Topic
	terminal bool
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{root: newNode()}
}

// Add registers a pattern. Adding a pattern twice is a no-op.
func (m *Matcher) Add(pattern Topic) {
	if !pattern.IsValid() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.root
	for _, seg := range pattern.Segments() {
		child := n.children[seg]
		if child == nil {
			child = newNode()
			n.children[seg] = child
		}
		n = child
	}
	n.pattern = pattern
	n.terminal = true
}

// Remove unregisters a pattern and prunes empty branches.
func (m *Matcher) Remove(pattern Topic) {
	if !pattern.IsValid() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	segs := pattern.Segments()
	path := make([]*node, 0, len(segs)+1)
	n := m.root
	path = append(path, n)
	for _, seg := range segs {
		n = n.children[seg]
		if n == nil {
			return
		}
		path = append(path, n)
	}
	n.terminal = false
	n.pattern = ""

	for i := len(segs) - 1; i >= 0; i-- {
		child := path[i+1]
		if child.terminal || len(child.children) > 0 {
			break
		}
		delete(path[i].children, segs[i])
	}
}

// Has reports whether the exact pattern is registered.
func (m *Matcher) Has(pattern Topic) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.root
	for _, seg := range pattern.Segments() {
		n = n.children[seg]
		if n == nil {
			return false
		}
	}
	return n.terminal
}

// Match returns every registered pattern accepting kind, each at most once.
func (m *Matcher) Match(kind Topic) []Topic {
	if !kind.IsValid() {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[Topic]struct{})
	var out []Topic
	m.walk(m.root, kind.Segments(), seen, &out)
	return out
}

func (m *Matcher) walk(n *node, segs []string, seen map[Topic]struct{}, out *[]Topic) {
	if len(segs) == 0 {
		if n.terminal {
			if _, dup := seen[n.pattern]; !dup {
				seen[n.pattern] = struct{}{}
				*out = append(*out, n.pattern)
			}
		}
		// "**" may still match zero trailing segments.
		if child := n.children[WildcardMulti]; child != nil {
			m.walk(child, segs, seen, out)
		}
		return
	}

	if child := n.children[segs[0]]; child != nil {
		m.walk(child, segs[1:], seen, out)
	}
	if child := n.children[WildcardSingle]; child != nil {
		m.walk(child, segs[1:], seen, out)
	}
	if child := n.children[WildcardMulti]; child != nil {
		for i := 0; i <= len(segs); i++ {
			m.walk(child, segs[i:], seen, out)
		}
	}
}

// Count returns the number of registered patterns.
func (m *Matcher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count func(*node) int
	count = func(n *node) int {
		c := 0
		if n.terminal {
			c++
		}
		for _, child := range n.children {
			c += count(child)
		}
		return c
	}
	return count(m.root)
}
