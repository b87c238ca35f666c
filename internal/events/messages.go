package events

import (
	"encoding/json"
	"time"
)

// TransactionCreatedMessage announces a newly stored transaction. It carries
// only the ID and type; consumers fetch the full row from the database.
type TransactionCreatedMessage struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionCreatedMessage(id int64, flowType string) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:        id,
		Type:      flowType,
		Timestamp: time.Now(),
	}
}

func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportCompletedMessage summarizes a finished CSV import batch.
type ImportCompletedMessage struct {
	TotalRows     int       `json:"total_rows"`
	ImportedCount int       `json:"imported_count"`
	ErrorCount    int       `json:"error_count"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewImportCompletedMessage(totalRows, importedCount, errorCount int) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		TotalRows:     totalRows,
		ImportedCount: importedCount,
		ErrorCount:    errorCount,
		Timestamp:     time.Now(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
