package db

import "database/sql"

type Block struct {
	ID          int64
	Name        string
	StartMin    int64
	EndMin      int64
	Variant     string
	Color       string
	Weekdays    sql.NullString
	Filter      sql.NullString
	BufferRatio float64
	CreatedAt   int64
	UpdatedAt   int64
}

type Task struct {
	ID              int64
	Title           string
	Priority        int64
	Categories      sql.NullString
	DueAt           sql.NullInt64
	CompletedAt     sql.NullInt64
	Recurrence      sql.NullString
	RecurrenceCount int64
	Estimate        float64
	Logged          float64
	CountRequired   float64
	CountCompleted  float64
	ChunkPreference string
	MinChunk        float64
	MaxChunk        float64
	Status          string
	CreatedAt       int64
	UpdatedAt       int64
}

type Chunk struct {
	ID        string
	TaskID    int64
	Variant   string
	Unit      string
	Size      float64
	MinSize   float64
	MaxSize   float64
	Ratings   sql.NullString
	BlockID   sql.NullInt64
	Date      string
	Recurring int64
	Status    string
	CreatedAt int64
}

type PlanRun struct {
	ID          string
	Date        string
	Status      string
	Objective   float64
	Scheduled   int64
	Unscheduled int64
	Nodes       int64
	ElapsedNs   int64
	CreatedAt   int64
}
