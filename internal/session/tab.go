package session

import (
	"encoding/json"
	"sync"
	"time"

	"medstat/domain/analysis"
	"medstat/domain/dataset"
	"medstat/internal/task"
)

// TabSession is the state of one analysis tab within a browser session: the
// dataset bound to it, the last submitted form and the last result.
type TabSession struct {
	Kind analysis.Kind

	mu      sync.Mutex
	data    *dataset.Dataset
	form    json.RawMessage
	result  analysis.Result
	boundAt time.Time

	run  *task.Task[analysis.Result]
	load *task.Task[*dataset.Dataset]
}

func newTabSession(kind analysis.Kind, timeout time.Duration) *TabSession {
	return &TabSession{
		Kind: kind,
		run:  task.New[analysis.Result](timeout),
		load: task.New[*dataset.Dataset](timeout),
	}
}

// BindDataset replaces the working dataset. Form state and the previous
// result belong to the old columns and are discarded.
func (t *TabSession) BindDataset(ds *dataset.Dataset) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = ds
	t.form = nil
	t.result = nil
	t.boundAt = time.Now()
}

// Dataset returns the bound dataset, nil when none was confirmed yet
func (t *TabSession) Dataset() *dataset.Dataset {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

// BoundAt returns when the current dataset was bound
func (t *TabSession) BoundAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.boundAt
}

// SetForm stores the raw form state last submitted by the user
func (t *TabSession) SetForm(raw json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.form = append(json.RawMessage(nil), raw...)
}

// Form returns the last submitted form state
func (t *TabSession) Form() json.RawMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.form
}

// SetResult records the latest successful result
func (t *TabSession) SetResult(r analysis.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result = r
}

// Result returns the latest successful result
func (t *TabSession) Result() analysis.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Task is the tab's run guard; one analysis request in flight at a time
func (t *TabSession) Task() *task.Task[analysis.Result] {
	return t.run
}

// LoadTask guards the tab's upload and REDCap fetches
func (t *TabSession) LoadTask() *task.Task[*dataset.Dataset] {
	return t.load
}
