package extract

import "sync"

// Registry holds every discovered image candidate for one page, keyed by
// URL, in insertion order. All methods are safe for concurrent use; the
// dimension prober updates records while strategies are still adding.
type Registry struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// AddIfAbsent inserts a candidate URL unless it is already present or
// clearly invalid. Serialized DOM text sometimes carries the literal
// strings "undefined" and "null" where an attribute was missing; those
// are rejected alongside the empty string. Returns true when a new
// record was created.
func (r *Registry) AddIfAbsent(rawURL string) bool {
	if rawURL == "" || rawURL == "undefined" || rawURL == "null" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[rawURL]; exists {
		return false
	}

	width, height := SizeHint(rawURL)
	rec := Record{
		URL:     rawURL,
		Width:   width,
		Height:  height,
		Format:  DetectFormat(rawURL),
		Quality: ClassifyQuality(rawURL),
	}
	if width > 0 && height > 0 {
		// Advisory estimate before the real format ratio applies on load.
		rec.EstimatedSize = int64(width) * int64(height) * 4
	}

	r.index[rawURL] = len(r.records)
	r.records = append(r.records, rec)
	return true
}

// UpdateOnLoad records authoritative dimensions once a probe decoded the
// image header. The format stays as classified at insertion.
func (r *Registry) UpdateOnLoad(rawURL string, width, height int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[rawURL]
	if !ok {
		return false
	}
	rec := &r.records[i]
	rec.Width = width
	rec.Height = height
	rec.Loaded = true
	rec.EstimatedSize = EstimateBytes(width, height, rec.Format)
	return true
}

// MarkUnloaded flags a record whose probe failed so it can be retried.
func (r *Registry) MarkUnloaded(rawURL string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[rawURL]
	if !ok {
		return false
	}
	r.records[i].Loaded = false
	return true
}

// SetSelected toggles the selection flag for one record.
func (r *Registry) SetSelected(rawURL string, selected bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[rawURL]
	if !ok {
		return false
	}
	r.records[i].Selected = selected
	return true
}

// SelectAll marks every record selected.
func (r *Registry) SelectAll() {
	r.setAll(true)
}

// DeselectAll clears every selection flag.
func (r *Registry) DeselectAll() {
	r.setAll(false)
}

func (r *Registry) setAll(selected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		r.records[i].Selected = selected
	}
}

// Get returns a copy of the record for a URL.
func (r *Registry) Get(rawURL string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[rawURL]
	if !ok {
		return Record{}, false
	}
	return r.records[i], true
}

// Records returns a copy of all records in insertion order.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Selected returns copies of the selected records in insertion order.
func (r *Registry) Selected() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if rec.Selected {
			out = append(out, rec)
		}
	}
	return out
}

// Unloaded returns the URLs of records still waiting for dimensions.
func (r *Registry) Unloaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		if !rec.Loaded {
			out = append(out, rec.URL)
		}
	}
	return out
}

// Len reports the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Clear removes every record.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = r.records[:0]
	r.index = make(map[string]int)
}
