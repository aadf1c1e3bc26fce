package crawl

// Queue is an ordered URL list without duplicates. URLs are compared in
// normalized form but kept as first added, so pages keep the address the
// caller asked for.
type Queue struct {
	items   []string
	visited map[string]bool
	idx     int // current read position
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		visited: make(map[string]bool),
	}
}

// Add enqueues a URL if it hasn't been seen before and reports whether it
// was added.
func (q *Queue) Add(url string) bool {
	key := NormalizeURL(url)
	if url == "" || q.visited[key] {
		return false
	}
	q.visited[key] = true
	q.items = append(q.items, url)
	return true
}

// HasNext returns true if there are unprocessed URLs.
func (q *Queue) HasNext() bool {
	return q.idx < len(q.items)
}

// Next returns the next unprocessed URL and advances the pointer.
func (q *Queue) Next() string {
	url := q.items[q.idx]
	q.idx++
	return url
}

// Remaining returns the number of URLs not yet returned by Next.
func (q *Queue) Remaining() int {
	return len(q.items) - q.idx
}

// Visited returns the total number of unique URLs seen.
func (q *Queue) Visited() int {
	return len(q.visited)
}

// All returns all queued URLs in insertion order.
func (q *Queue) All() []string {
	return q.items
}
