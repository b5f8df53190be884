package domain

import "time"

// HistoryModel is the GORM model for the session_history table.
type HistoryModel struct {
	ID          string    `gorm:"type:varchar(26);primaryKey"`
	StreamName  string    `gorm:"type:varchar(200);index;not null"`
	Status      string    `gorm:"type:varchar(20);index;not null"`
	RoomID      string    `gorm:"type:varchar(64)"`
	StreamerID  string    `gorm:"type:varchar(64)"`
	ProcessorID string    `gorm:"type:varchar(64)"`
	FailedStep  string    `gorm:"type:varchar(64)"`
	Error       string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for HistoryModel.
func (HistoryModel) TableName() string {
	return "session_history"
}

// ToDomain converts HistoryModel to a domain HistoryRecord.
func (m *HistoryModel) ToDomain() *HistoryRecord {
	return &HistoryRecord{
		ID:          m.ID,
		StreamName:  m.StreamName,
		Status:      HistoryStatus(m.Status),
		RoomID:      m.RoomID,
		StreamerID:  m.StreamerID,
		ProcessorID: m.ProcessorID,
		FailedStep:  m.FailedStep,
		Error:       m.Error,
		CreatedAt:   m.CreatedAt,
	}
}

// HistoryToModel converts a domain HistoryRecord to HistoryModel.
func HistoryToModel(r *HistoryRecord) *HistoryModel {
	return &HistoryModel{
		ID:          r.ID,
		StreamName:  r.StreamName,
		Status:      string(r.Status),
		RoomID:      r.RoomID,
		StreamerID:  r.StreamerID,
		ProcessorID: r.ProcessorID,
		FailedStep:  r.FailedStep,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
	}
}
