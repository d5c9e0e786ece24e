package data

import (
	"log/slog"
	"os"
	"sort"
)

// ProgressFile is the JSON progress store: an object keyed by work id.
type ProgressFile struct {
	path string
}

func NewProgressFile(path string) *ProgressFile {
	return &ProgressFile{path: path}
}

func (f *ProgressFile) load() map[string]*Progress {
	records := map[string]*Progress{}
	if err := readJSON(f.path, &records); err != nil {
		slog.Warn("progress store unreadable, treating as empty", "path", f.path, "err", err)
		return map[string]*Progress{}
	}
	for id, p := range records {
		if p == nil {
			delete(records, id)
			continue
		}
		p.WorkID = id
	}
	return records
}

func (f *ProgressFile) save(records map[string]*Progress) error {
	if err := writeJSON(f.path, records); err != nil {
		return NewError(KindStorage, "save progress", err)
	}
	return nil
}

// Init creates an empty store if none exists yet.
func (f *ProgressFile) Init() error {
	if _, err := os.Stat(f.path); err == nil {
		return nil
	}
	return f.save(map[string]*Progress{})
}

func (f *ProgressFile) Get(workID string) (*Progress, error) {
	return f.load()[workID], nil
}

func (f *ProgressFile) Upsert(workID, title string, next, total int) error {
	records := f.load()
	records[workID] = NewProgress(workID, title, next, total)
	if err := f.save(records); err != nil {
		return err
	}
	slog.Info("progress updated", "work_id", workID, "title", title, "next_chapter", next)
	return nil
}

func (f *ProgressFile) Delete(workID string) (bool, error) {
	records := f.load()
	p, ok := records[workID]
	if !ok {
		return false, nil
	}
	delete(records, workID)
	if err := f.save(records); err != nil {
		return false, err
	}
	slog.Info("progress cleared", "work_id", workID, "title", p.Title)
	return true, nil
}

func (f *ProgressFile) Clear() error {
	if err := f.save(map[string]*Progress{}); err != nil {
		return err
	}
	slog.Info("all progress cleared")
	return nil
}

// List returns every record ordered by work id.
func (f *ProgressFile) List() ([]*Progress, error) {
	records := f.load()
	out := make([]*Progress, 0, len(records))
	for _, p := range records {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkID < out[j].WorkID })
	return out, nil
}
