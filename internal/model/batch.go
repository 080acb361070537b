// internal/model/batch.go
package model

// Batch
// ------------------------------------------------------------
// LoadBatch 1회 호출로 생성되는 레코드 묶음.
// 트랜잭션 경계를 자유롭게 넘나든다. (N 의 Trailer 와 N+1 의 Header 가 한 배치에 올 수 있음)
//
//   - Records:      방출 순서 그대로의 레코드
//   - Transactions: 이 배치에 레코드를 기여한 트랜잭션 id (최초 등장 순서)
//   - Closed:       Trailer 가 이 배치에 포함된 트랜잭션 id
//
// sink 단계는 Transactions 로 실패 시 abort 대상을, Closed 로 commit/rollback
// 판정 대상을 알 수 있다.
type Batch struct {
	Records      []Record
	Transactions []int
	Closed       []int
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// Touch 는 id 를 Transactions 에 (중복 없이) 추가한다.
func (b *Batch) Touch(id int) {
	for _, v := range b.Transactions {
		if v == id {
			return
		}
	}
	b.Transactions = append(b.Transactions, id)
}
