// internal/adapter/completion.go
package adapter

import (
	"fmt"
	"sync/atomic"
)

// completion.go
// ------------------------------------------------------------
// coordinator 가 트랜잭션을 정산할 때 호출하는 콜백.
// 호출 순서: FlushTransaction → CommitTransaction | RollbackTransaction → CloseTransaction
//
// rename 실패는 치명적이지 않다. 파일은 processing 이름으로 남고
// 운영자가 확인할 수 있도록 error 로그와 metric 만 남긴다.

// FlushTransaction 은 파일 작업이 없다. 에러를 돌려주면 coordinator 는 rollback 한다.
func (a *Adapter) FlushTransaction(id int) error {
	if _, ok := a.names.get(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTransaction, id)
	}
	return nil
}

// CommitTransaction 은 processing 파일을 done 위치로 옮긴다.
func (a *Adapter) CommitTransaction(id int) {
	names, ok := a.names.get(id)
	if !ok {
		a.log.Error().Int("txn", id).Msg("commit for unknown transaction")
		return
	}
	a.move(id, names.Proc, names.Done, "commit")
}

// RollbackTransaction 은 processing 파일을 error 위치로 옮긴다.
func (a *Adapter) RollbackTransaction(id int) {
	names, ok := a.names.get(id)
	if !ok {
		a.log.Error().Int("txn", id).Msg("rollback for unknown transaction")
		return
	}
	a.move(id, names.Proc, names.Error, "rollback")
}

// CloseTransaction 은 트랜잭션의 이름 정보를 해제한다.
func (a *Adapter) CloseTransaction(id int) {
	a.names.delete(id)
}

func (a *Adapter) move(id int, from, to, action string) {
	if err := a.fs.Rename(from, to); err != nil {
		atomic.AddInt64(&a.metrics.CompletionRenameFailuresTotal, 1)
		a.log.Error().
			Err(err).
			Int("txn", id).
			Str("from", from).
			Str("to", to).
			Str("action", action).
			Msg("could not move processing file")
		return
	}
	a.log.Info().
		Int("txn", id).
		Str("to", to).
		Str("action", action).
		Msg("processing file moved")
}
