package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// ListFilter narrows Repository.List. The zero value matches every job.
type ListFilter struct {
	// Status keeps only jobs in this status when set.
	Status Status
	// Limit caps the number of jobs returned; 0 means no cap.
	Limit int
}

// Matches reports whether j passes the status filter.
func (f ListFilter) Matches(j *Job) bool {
	return f.Status == "" || j.Status == f.Status
}

// Repository stores subtitle jobs. Implementations hand out copies, so a
// returned Job can be changed freely and saved back.
type Repository interface {
	// Save inserts or replaces the job with the same ID.
	Save(ctx context.Context, job *Job) error

	// FindByID returns ErrJobNotFound for unknown IDs.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns the jobs that match filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Job, error)

	Delete(ctx context.Context, id string) error
}
