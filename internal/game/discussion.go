package game

import "github.com/scythe504/wavelength-backend/internal"

// DiscussionDraft is one player's revision in progress. Only one target may
// diverge from the snapshot: editing another target snaps the previous one
// back.
type DiscussionDraft struct {
	snapshot map[string]int
	values   map[string]int
	editing  string
}

func NewDiscussionDraft(snapshot map[string]int) *DiscussionDraft {
	d := &DiscussionDraft{
		snapshot: make(map[string]int, len(snapshot)),
		values:   make(map[string]int, len(snapshot)),
	}
	for k, v := range snapshot {
		d.snapshot[k] = v
		d.values[k] = v
	}
	return d
}

// Select makes target the one being edited.
func (d *DiscussionDraft) Select(target string) {
	if d.editing == target {
		return
	}
	if d.editing != "" {
		if old, ok := d.snapshot[d.editing]; ok {
			d.values[d.editing] = old
		} else {
			delete(d.values, d.editing)
		}
	}
	d.editing = target
}

func (d *DiscussionDraft) Set(target string, value int) error {
	if value < internal.MinSecret || value > internal.MaxSecret {
		return internal.Invalid("guess must be between %d and %d", internal.MinSecret, internal.MaxSecret)
	}
	d.Select(target)
	d.values[target] = value
	return nil
}

func (d *DiscussionDraft) Editing() string {
	return d.editing
}

func (d *DiscussionDraft) Placements() map[string]int {
	out := make(map[string]int, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}
