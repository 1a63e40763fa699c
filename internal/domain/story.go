package domain

// StoryCluster groups items believed to report the same story.
// It is derived on every read and never persisted.
type StoryCluster struct {
	Lead        Item
	Related     []Item
	Sources     []string
	MultiSource bool
}

// Members returns the lead followed by related items.
func (c StoryCluster) Members() []Item {
	out := make([]Item, 0, len(c.Related)+1)
	out = append(out, c.Lead)
	return append(out, c.Related...)
}

// Size counts the lead plus related items.
func (c StoryCluster) Size() int {
	return len(c.Related) + 1
}
