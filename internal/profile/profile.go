// Package profile holds the per-section profiling table of a run and
// persists it.
package profile

import (
	"sort"
	"time"
)

// Record is the state captured after one section.
type Record struct {
	Title                string              `json:"title" msgpack:"title"`
	Values               map[string]float64  `json:"values" msgpack:"values"`
	ExecutionTimeSeconds float64             `json:"execution_time_seconds" msgpack:"execution_time_seconds"`
	Exports              map[string]any      `json:"exports,omitempty" msgpack:"exports,omitempty"`
	Knobs                map[string][]string `json:"knobs,omitempty" msgpack:"knobs,omitempty"`
}

// Profile is the ordered table of records of one run.
type Profile struct {
	RunID     string    `json:"run_id" msgpack:"run_id"`
	StartedAt time.Time `json:"started_at" msgpack:"started_at"`
	Records   []Record  `json:"records" msgpack:"records"`
}

// New returns an empty profile.
func New(runID string, startedAt time.Time) *Profile {
	return &Profile{RunID: runID, StartedAt: startedAt.UTC()}
}

// Add appends a record.
func (p *Profile) Add(r Record) {
	p.Records = append(p.Records, r)
}

// Record returns the latest record with the given title.
func (p *Profile) Record(title string) (Record, bool) {
	for i := len(p.Records) - 1; i >= 0; i-- {
		if p.Records[i].Title == title {
			return p.Records[i], true
		}
	}
	return Record{}, false
}

// Titles returns the record titles in execution order.
func (p *Profile) Titles() []string {
	out := make([]string, 0, len(p.Records))
	for _, r := range p.Records {
		out = append(out, r.Title)
	}
	return out
}

// Names returns every namespace name seen in any record, sorted.
func (p *Profile) Names() []string {
	set := make(map[string]struct{})
	for _, r := range p.Records {
		for name := range r.Values {
			set[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Total returns the summed execution time of all records.
func (p *Profile) Total() time.Duration {
	var sum float64
	for _, r := range p.Records {
		sum += r.ExecutionTimeSeconds
	}
	return time.Duration(sum * float64(time.Second))
}
