// internal/adapter/claimer.go
package adapter

import "sync/atomic"

// assignInput
//
// scan 결과를 순서대로 claim 한다. 한 번의 호출에서:
//   - coordinator 가 더 이상 받지 못하면 즉시 멈춘다 (뒤 후보는 다음 cycle 로)
//   - secondary filter 에 걸린 이름은 용량을 쓰지 않고 건너뛴다
//   - rename 실패는 트랜잭션 취소 후 다음 후보로 넘어간다
//
// claim 된 id 는 pending 큐에 추가되고 반환값으로도 돌려준다.
func (a *Adapter) assignInput() []int {
	if a.coord.ClosingInProgress() {
		return nil
	}

	candidates, err := a.scan()
	if err != nil {
		a.log.Error().Err(err).Msg("input scan failed, skipping claim for this cycle")
		return nil
	}

	var claimed []int
	for _, name := range candidates {
		if !a.coord.CanStartNewTransaction() {
			break
		}
		if !a.policy.FilterFileName(name, a.scheme.ProcPrefix) {
			continue
		}

		id := a.coord.CreateNewTransaction()
		names := a.scheme.Names(name)

		if err := a.fs.Rename(names.Input, names.Proc); err != nil {
			a.log.Warn().
				Err(err).
				Str("file", name).
				Int("txn", id).
				Msg("claim rename failed, transaction cancelled")
			a.coord.CancelTransaction(id)
			atomic.AddInt64(&a.metrics.ClaimFailuresTotal, 1)
			continue
		}

		a.names.put(id, names)
		a.state.enqueue(id)
		claimed = append(claimed, id)
		atomic.AddInt64(&a.metrics.FilesClaimedTotal, 1)

		a.log.Info().Str("file", name).Int("txn", id).Msg("input file claimed")
		a.sched.Wake()
	}

	if len(claimed) > 0 {
		a.setPendingGauge()
	}
	return claimed
}
