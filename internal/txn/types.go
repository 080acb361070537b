// internal/txn/types.go
package txn

import "time"

type Status string

const (
	StatusClaimed    Status = "CLAIMED"
	StatusProcessing Status = "PROCESSING"
	StatusFlushed    Status = "FLUSHED"
	StatusCommitted  Status = "COMMITTED"
	StatusRolledBack Status = "ROLLED_BACK"
	StatusClosed     Status = "CLOSED"
)

// Transaction 은 입력 파일 1개의 수명.
type Transaction struct {
	ID        int       `json:"id"`
	Status    Status    `json:"status"`
	Abort     bool      `json:"abort"`
	Records   int       `json:"records"`
	StartTime time.Time `json:"start_time"`
}
