package queue

import (
	"encoding/json"
	"os"
)

type snapshot struct {
	Pending []Entry `json:"pending"`
	Dead    []Entry `json:"dead"`
}

// persist writes the current queue state to the snapshot file so pending jobs
// survive a process restart. A missing path disables persistence.
func (q *Queue) persist() {
	if q.cfg.SnapshotPath == "" {
		return
	}
	q.mu.Lock()
	snap := snapshot{
		Pending: append([]Entry(nil), q.pending...),
		Dead:    append([]Entry(nil), q.dead...),
	}
	q.mu.Unlock()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		q.log.Errorf("queue snapshot marshal failed: %v", err)
		return
	}
	tmp := q.cfg.SnapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		q.log.Errorf("queue snapshot write failed: %v", err)
		return
	}
	if err := os.Rename(tmp, q.cfg.SnapshotPath); err != nil {
		q.log.Errorf("queue snapshot rename failed: %v", err)
	}
}

func (q *Queue) restore() error {
	if q.cfg.SnapshotPath == "" {
		return nil
	}
	data, err := os.ReadFile(q.cfg.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	q.mu.Lock()
	q.pending = snap.Pending
	q.dead = snap.Dead
	q.mu.Unlock()
	return nil
}
