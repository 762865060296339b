package examination

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExamItem maps to the examination_items catalog table.
type ExamItem struct {
	ID                      uuid.UUID       `db:"item_id" json:"item_id"`
	ItemCode                string          `db:"item_code" json:"item_code"`
	ItemName                string          `db:"item_name" json:"item_name"`
	ItemType                *string         `db:"item_type" json:"item_type,omitempty"`
	Modality                *string         `db:"modality" json:"modality,omitempty"`
	Category                *string         `db:"category" json:"category,omitempty"`
	Description             *string         `db:"description" json:"description,omitempty"`
	StandardDuration        *int            `db:"standard_duration" json:"standard_duration,omitempty"`
	PreparationInstructions *string         `db:"preparation_instructions" json:"preparation_instructions,omitempty"`
	NormalRange             *string         `db:"normal_range" json:"normal_range,omitempty"`
	Unit                    *string         `db:"unit" json:"unit,omitempty"`
	ReferencePrice          decimal.Decimal `db:"reference_price" json:"reference_price"`
	IsActive                bool            `db:"is_active" json:"is_active"`
	CreatedAt               time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time       `db:"updated_at" json:"updated_at"`
}

// ExamRecord maps to the examination_records table. Result payloads land in
// jsonb columns so modality-specific value sets need no schema changes.
type ExamRecord struct {
	ID            uuid.UUID       `db:"exam_id" json:"exam_id"`
	ExamNumber    string          `db:"exam_number" json:"exam_number"`
	VisitID       uuid.UUID       `db:"visit_id" json:"visit_id"`
	ItemID        uuid.UUID       `db:"item_id" json:"item_id"`
	ExamDate      time.Time       `db:"exam_date" json:"exam_date"`
	ResultSummary *string         `db:"result_summary" json:"result_summary,omitempty"`
	ResultValues  json.RawMessage `db:"result_values" json:"result_values,omitempty"`
	DataPath      *string         `db:"data_path" json:"data_path,omitempty"`
	ReportPath    *string         `db:"report_path" json:"report_path,omitempty"`
	AIAnalysis    json.RawMessage `db:"ai_analysis" json:"ai_analysis,omitempty"`
	Status        string          `db:"status" json:"status"`
	ReviewedBy    *uuid.UUID      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

const (
	StatusRegistered = "REGISTERED"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusReviewed   = "REVIEWED"
)
