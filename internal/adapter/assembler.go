// internal/adapter/assembler.go
package adapter

import (
	"context"
	"fmt"
	"sync/atomic"

	"cdr-ingest/internal/model"

	"github.com/rs/zerolog"
)

// LoadBatch
// ------------------------------------------------------------
// 외부 스케줄러가 반복 호출하는 1회 production cycle.
//
//  1. claim 가능한 입력 파일을 pending 큐에 넣는다.
//  2. 예산(batch size)이 남아 있고 pending 또는 열린 스트림이 있는 동안:
//     - 스트림이 없으면 큐 앞의 트랜잭션을 열고 Header 를 방출
//     - 있으면 줄을 읽어 Data 를 방출하고, 끝에 도달했으면 Trailer 로 닫는다
//
// Header, Trailer, Data(변환 결과가 nil 이 아닌 것)가 예산을 소모한다.
// 빈 줄, purge 결과, trailer 라운드에서 나온 추가 레코드는 예산을 쓰지 않는다.
//
// 스트림 닫기는 예산이 한 칸 이상 남았을 때만 한다. 남지 않았으면 다음 cycle 첫 pass 에서 닫는다.
// 따라서 한 cycle 의 counted 레코드 수는 batch size 를 넘지 않는다.
//
// Wake 는 pass 가 에러 없이 끝났고 할 일이 남아 있을 때만 보낸다.
// 읽기 에러 후의 재시도 간격은 스케줄러의 poll 주기를 따른다.
//
// 읽기 I/O 에러는 fatal 레벨로 기록하고 지금까지 만든 배치를 nil 에러와 함께 돌려준다.
// 스트림은 열린 채로 남아 다음 cycle 에 다시 읽는다.
// claim 된 파일을 열지 못하면 ErrStreamOpen 을 돌려주며, 이 경우 파이프라인은 멈춰야 한다.
func (a *Adapter) LoadBatch(ctx context.Context) (*model.Batch, error) {
	batch := &model.Batch{}
	if ctx.Err() != nil {
		return batch, nil
	}

	a.assignInput()

	budget := a.settings.batchSize
	count := 0

	for count < budget && (len(a.state.pending) > 0 || a.state.stream != nil) {
		if ctx.Err() != nil {
			break
		}

		if a.state.stream == nil {
			if err := a.openNext(batch); err != nil {
				a.finish(batch)
				return batch, err
			}
			count++
			continue
		}

		st := a.state.stream
		more, err := a.drain(st, batch, &count, budget)

		if a.coord.TransactionAbortRequested(st.txn) {
			a.discard(batch, st.txn)
		}
		a.coord.UpdateRecordCount(st.txn, st.seq)

		if err != nil {
			atomic.AddInt64(&a.metrics.ReadErrorsTotal, 1)
			a.log.WithLevel(zerolog.FatalLevel).
				Err(err).
				Int("txn", st.txn).
				Msg("error reading input file")
			break
		}

		if !more && count < budget {
			a.closeStream(st, batch, &count)
		}
		if a.state.stream != nil || len(a.state.pending) > 0 {
			a.sched.Wake()
		}
	}

	a.finish(batch)
	return batch, nil
}

// openNext 는 pending 큐 앞의 트랜잭션을 열고 Header 를 배치에 넣는다.
func (a *Adapter) openNext(batch *model.Batch) error {
	id, _ := a.state.dequeue()
	a.setPendingGauge()

	names, ok := a.names.get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTransaction, id)
	}

	rc, err := a.fs.Open(names.Proc)
	if err != nil {
		a.log.Error().
			Err(err).
			Int("txn", id).
			Str("file", names.Proc).
			Msg("not able to read claimed file")
		return fmt.Errorf("%w <%s>: %w", ErrStreamOpen, names.Proc, err)
	}

	a.state.stream = &openStream{txn: id, reader: newLineReader(rc)}
	a.state.active = id
	a.coord.SetTransactionProcessing(id)

	h := &model.Header{StreamName: names.Base, TransactionID: id}
	if out := a.transformer.TransformHeader(h); out != nil {
		h = out
	}
	a.state.streams++
	atomic.AddInt64(&a.metrics.StreamsOpenedTotal, 1)

	batch.Records = append(batch.Records, h)
	batch.Touch(id)

	a.log.Debug().Int("txn", id).Str("stream", names.Base).Msg("stream opened")
	return nil
}

// drain 은 예산이 남은 동안 줄을 읽어 Data 를 만든다.
// 반환값 more 는 pass 종료 시점에 읽을 데이터가 남았는지 여부.
func (a *Adapter) drain(st *openStream, batch *model.Batch, count *int, budget int) (bool, error) {
	for *count < budget {
		more, err := st.reader.More()
		if err != nil {
			return true, err
		}
		if !more {
			return false, nil
		}

		line, err := st.reader.ReadLine()
		if err != nil {
			return true, err
		}
		if line == "" {
			atomic.AddInt64(&a.metrics.BlankLinesTotal, 1)
			continue
		}

		rec := a.transformer.TransformRecord(&model.Data{Line: line, Seq: st.seq})
		if rec == nil {
			continue
		}
		batch.Records = append(batch.Records, rec)
		batch.Touch(st.txn)
		*count++
		st.seq++
	}
	return st.reader.More()
}

// discard 는 이번 cycle 배치에서 Header/Trailer 를 제외한 레코드를 모두 버린다.
// 이전 cycle 에 이미 내보낸 레코드는 되돌릴 수 없다.
func (a *Adapter) discard(batch *model.Batch, txn int) {
	original := len(batch.Records)
	kept := batch.Records[:0]
	for _, r := range batch.Records {
		if model.IsSentinel(r) {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < original; i++ {
		batch.Records[i] = nil
	}
	batch.Records = kept

	discarded := original - len(kept)
	atomic.AddInt64(&a.metrics.RecordsDiscardedTotal, int64(discarded))
	a.log.Warn().
		Int("txn", txn).
		Int("discarded", discarded).
		Int("original", original).
		Msg("input records discarded because of pending abort")
}

// closeStream
//
// 스트림 끝 처리:
// purge hook → Trailer (hook 이 *model.Trailer 를 줄 때까지 반복) → 핸들 close → Flushed 통보.
// 예산은 최종 Trailer 한 칸만 소모한다.
func (a *Adapter) closeStream(st *openStream, batch *model.Batch, count *int) {
	a.state.stream = nil

	if rec := a.transformer.PurgePendingRecord(); rec != nil {
		batch.Records = append(batch.Records, rec)
		st.seq++
		a.coord.UpdateRecordCount(st.txn, st.seq)
	}

	names, _ := a.names.get(st.txn)
	tr := &model.Trailer{StreamName: names.Base, TransactionID: st.txn}
	for {
		out := a.transformer.TransformTrailer(tr)
		if out == nil {
			out = tr
		}
		batch.Records = append(batch.Records, out)
		if _, ok := out.(*model.Trailer); ok {
			*count++
			break
		}
	}
	batch.Touch(st.txn)
	batch.Closed = append(batch.Closed, st.txn)

	if err := st.reader.Close(); err != nil {
		a.log.Error().Err(err).Int("txn", st.txn).Msg("error closing input stream")
	}

	a.coord.SetTransactionFlushed(st.txn)
	a.state.active = 0

	a.log.Debug().Int("txn", st.txn).Int("records", st.seq).Msg("stream closed")
}

func (a *Adapter) finish(batch *model.Batch) {
	if n := batch.Len(); n > 0 {
		atomic.AddInt64(&a.metrics.RecordsEmittedTotal, int64(n))
		atomic.AddInt64(&a.metrics.BatchesProducedTotal, 1)
	}
}
