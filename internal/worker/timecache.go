// internal/worker/timecache.go
package worker

import (
	"context"
	"sync/atomic"
	"time"
)

// timecache.go
// ------------------------------------------------------------
// 출력 파일명(<unix>_...)과 S3 파티션(dt=YYYY-MM-DD / hr=HH)에 쓰는 시간을
// 1초 단위로 캐싱한다. 배치마다 time.Now + Format 을 반복하지 않기 위함.
//
// 파티션은 UTC 기준.
// ------------------------------------------------------------

// Clock 은 초 단위 정밀도의 캐시된 현재 시각.
// Run 이 돌고 있지 않으면 생성 시점(또는 마지막 Refresh) 값이 유지된다.
type Clock struct {
	now func() time.Time

	unixSec atomic.Int64
	dtVal   atomic.Value // "YYYY-MM-DD"
	hrVal   atomic.Value // "HH"
}

// NewClock 은 now 로 시각을 읽는 Clock 을 만든다. nil 이면 time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	c := &Clock{now: now}
	c.Refresh()
	return c
}

// Refresh 는 캐시를 즉시 갱신한다.
func (c *Clock) Refresh() {
	t := c.now().UTC()
	c.unixSec.Store(t.Unix())
	c.dtVal.Store(t.Format("2006-01-02"))
	c.hrVal.Store(t.Format("15"))
}

// Run 은 ctx 가 끝날 때까지 매초 갱신한다.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh()
		}
	}
}

// Unix returns cached UTC epoch seconds.
func (c *Clock) Unix() int64 { return c.unixSec.Load() }

// DT returns "YYYY-MM-DD".
func (c *Clock) DT() string { return c.dtVal.Load().(string) }

// HR returns "HH".
func (c *Clock) HR() string { return c.hrVal.Load().(string) }
