package models

import "time"

// TransferDirection says whether an EDI file was sent or received
type TransferDirection string

const (
	TransferOutbound TransferDirection = "OUTBOUND"
	TransferInbound  TransferDirection = "INBOUND"
)

// EdiTransfer records one file exchanged with the benefits administrator
type EdiTransfer struct {
	ID          int64             `json:"id" db:"id"`
	Filename    string            `json:"filename" db:"filename"`
	StoragePath string            `json:"storagePath,omitempty" db:"storage_path"`
	Direction   TransferDirection `json:"direction" db:"direction"`
	RecordCount int               `json:"recordCount" db:"record_count"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
}
