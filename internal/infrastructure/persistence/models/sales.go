package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/sales"
)

// UploadModel is the persistence model for sales.Upload
type UploadModel struct {
	BaseModel
	Filename     string     `gorm:"type:varchar(255);not null"`
	StoragePath  string     `gorm:"type:varchar(512);not null"`
	Format       string     `gorm:"type:varchar(10);not null"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	ErrorMessage string     `gorm:"type:text"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	RowCount     int        `gorm:"not null;default:0"`
	DroppedCount int        `gorm:"not null;default:0"`
	StartedAt    *time.Time `gorm:"index"`
	CompletedAt  *time.Time
}

// TableName returns the table name for GORM
func (UploadModel) TableName() string {
	return "uploads"
}

// ToDomain converts the model to a domain entity
func (m *UploadModel) ToDomain() *sales.Upload {
	return &sales.Upload{
		BaseEntity:   m.BaseModel.ToDomain(),
		Filename:     m.Filename,
		StoragePath:  m.StoragePath,
		Format:       sales.FileFormat(m.Format),
		Status:       sales.UploadStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		OwnerID:      m.OwnerID,
		RowCount:     m.RowCount,
		DroppedCount: m.DroppedCount,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
}

// FromDomain populates the model from a domain entity
func (m *UploadModel) FromDomain(u *sales.Upload) {
	m.FromDomainBaseEntity(u.BaseEntity)
	m.Filename = u.Filename
	m.StoragePath = u.StoragePath
	m.Format = string(u.Format)
	m.Status = string(u.Status)
	m.ErrorMessage = u.ErrorMessage
	m.OwnerID = u.OwnerID
	m.RowCount = u.RowCount
	m.DroppedCount = u.DroppedCount
	m.StartedAt = u.StartedAt
	m.CompletedAt = u.CompletedAt
}

// UploadModelFromDomain creates a model from a domain entity
func UploadModelFromDomain(u *sales.Upload) *UploadModel {
	m := &UploadModel{}
	m.FromDomain(u)
	return m
}

// StatusColumns returns the lifecycle columns written on every status transition
func (m *UploadModel) StatusColumns() map[string]any {
	return map[string]any{
		"status":        m.Status,
		"error_message": m.ErrorMessage,
		"row_count":     m.RowCount,
		"dropped_count": m.DroppedCount,
		"started_at":    m.StartedAt,
		"completed_at":  m.CompletedAt,
		"updated_at":    m.UpdatedAt,
	}
}

// FactRecordModel is the persistence model for sales.FactRecord.
// The composite indexes serve the region and product filters.
type FactRecordModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	UploadID    uuid.UUID `gorm:"type:uuid;not null;index;index:idx_fact_records_upload_region,priority:1;index:idx_fact_records_upload_product,priority:1"`
	Date        string    `gorm:"type:varchar(32);not null"`
	ProductName string    `gorm:"type:varchar(255);not null;index:idx_fact_records_upload_product,priority:2"`
	Quantity    float64   `gorm:"not null"`
	Price       float64   `gorm:"not null"`
	Region      string    `gorm:"type:varchar(255);not null;index:idx_fact_records_upload_region,priority:2"`
}

// TableName returns the table name for GORM
func (FactRecordModel) TableName() string {
	return "fact_records"
}

// ToDomain converts the model to a domain entity
func (m *FactRecordModel) ToDomain() sales.FactRecord {
	return sales.FactRecord{
		ID:          m.ID,
		UploadID:    m.UploadID,
		Date:        m.Date,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		Price:       m.Price,
		Region:      m.Region,
	}
}

// FactRecordModelFromDomain creates a model from a domain entity
func FactRecordModelFromDomain(r sales.FactRecord) FactRecordModel {
	return FactRecordModel{
		ID:          r.ID,
		UploadID:    r.UploadID,
		Date:        r.Date,
		ProductName: r.ProductName,
		Quantity:    r.Quantity,
		Price:       r.Price,
		Region:      r.Region,
	}
}

// SummaryModel is the persistence model for sales.Summary. One row per upload.
type SummaryModel struct {
	UploadID      uuid.UUID    `gorm:"type:uuid;primaryKey"`
	ProductTotals sales.Totals `gorm:"type:text;serializer:json;not null"`
	RegionTotals  sales.Totals `gorm:"type:text;serializer:json;not null"`
	MonthTotals   sales.Totals `gorm:"type:text;serializer:json;not null"`
	CreatedAt     time.Time    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SummaryModel) TableName() string {
	return "summaries"
}

// ToDomain converts the model to a domain entity
func (m *SummaryModel) ToDomain() *sales.Summary {
	return &sales.Summary{
		UploadID:      m.UploadID,
		ProductTotals: nonNil(m.ProductTotals),
		RegionTotals:  nonNil(m.RegionTotals),
		MonthTotals:   nonNil(m.MonthTotals),
		CreatedAt:     m.CreatedAt,
	}
}

// SummaryModelFromDomain creates a model from a domain entity
func SummaryModelFromDomain(s *sales.Summary) *SummaryModel {
	return &SummaryModel{
		UploadID:      s.UploadID,
		ProductTotals: nonNil(s.ProductTotals),
		RegionTotals:  nonNil(s.RegionTotals),
		MonthTotals:   nonNil(s.MonthTotals),
		CreatedAt:     s.CreatedAt,
	}
}

func nonNil(t sales.Totals) sales.Totals {
	if t == nil {
		return sales.Totals{}
	}
	return t
}
