package classifier

import (
	"time"

	"github.com/out-of-energy/topshop/internal/content"
	"github.com/out-of-energy/topshop/internal/model"
)

// task tracks one classification through pending, fetched and scored.
type task struct {
	target    string
	kind      model.TaskKind
	state     model.TaskState
	fetch     model.FetchResult
	doc       *content.Document
	threshold float64
}

func newTask(target string, kind model.TaskKind) *task {
	return &task{target: target, kind: kind, state: model.TaskStatePending}
}

// fetched records content for a pending task.
func (t *task) fetched(res model.FetchResult, doc *content.Document) {
	if t.state != model.TaskStatePending {
		panic("classifier: fetched called on a " + t.state.String() + " task")
	}
	t.fetch = res
	t.doc = doc
	t.state = model.TaskStateFetched
}

// scored moves the task to its terminal state and returns the result
// skeleton. Both pending (failed fetch) and fetched tasks may be scored.
func (t *task) scored(at time.Time) model.ClassificationResult {
	if t.state == model.TaskStateScored {
		panic("classifier: task scored twice")
	}
	t.state = model.TaskStateScored
	return model.ClassificationResult{
		Target:     t.target,
		Kind:       t.kind,
		Threshold:  t.threshold,
		State:      model.TaskStateScored,
		StatusCode: t.fetch.StatusCode,
		FinalURL:   t.fetch.FinalURL,
		ErrorKind:  model.FetchErrorNone,
		CheckedAt:  at,
	}
}
