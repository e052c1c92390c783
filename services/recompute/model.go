package recompute

import "time"

// Job tracks one recomputation run, either a single creator or a full sweep.
type Job struct {
	ID          string     `gorm:"column:id;primaryKey;type:char(26)"`
	TaskType    string     `gorm:"column:task_type;not null"`
	CreatorID   string     `gorm:"column:creator_id;index"`
	Status      string     `gorm:"column:status;not null;default:pending"`
	Processed   int        `gorm:"column:processed"`
	Succeeded   int        `gorm:"column:succeeded"`
	Failed      int        `gorm:"column:failed"`
	LastError   string     `gorm:"column:last_error"`
	StartedAt   *time.Time `gorm:"column:started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Job) TableName() string {
	return "recompute_jobs"
}

const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)
