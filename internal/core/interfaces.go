package core

// RunRepository defines storage operations for run history
type RunRepository interface {
	Create(run *Run) error
	GetByID(id string) (*Run, error)
	GetRecent(limit int) ([]Run, error)
}
