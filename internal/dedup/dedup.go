// Package dedup merges job lists so that each (title, organization) key
// appears once.
package dedup

import "github.com/pders01/jobfeed/internal/model"

// Merge walks existing then incoming. Each key keeps the position where it
// was first seen and the value from its last occurrence, so incoming
// records overwrite existing ones in place and new keys are appended.
func Merge(existing, incoming []model.Job) []model.Job {
	index := make(map[model.Key]int, len(existing)+len(incoming))
	out := make([]model.Job, 0, len(existing)+len(incoming))

	add := func(job model.Job) {
		if i, ok := index[job.Key()]; ok {
			out[i] = job
			return
		}
		index[job.Key()] = len(out)
		out = append(out, job)
	}

	for _, job := range existing {
		add(job)
	}
	for _, job := range incoming {
		add(job)
	}
	return out
}

// Dedupe removes repeated keys from jobs, keeping the last value for each.
func Dedupe(jobs []model.Job) []model.Job {
	return Merge(nil, jobs)
}
