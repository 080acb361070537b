// internal/worker/file_util.go
package worker

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// file_util.go
// ------------------------------------------------------------
// 배치 출력 파일명 규칙:
//
//	<unix>_<instance>_<counter>.jsonl.gz
//
// 예:
//
//	1764721594_ingest1_000042.jsonl.gz
//
// 같은 인스턴스 안에서는 정렬 = 출력 순서이므로,
// downstream 은 이름순으로 읽으면 트랜잭션의 Header → Trailer 순서를 그대로 재구성할 수 있다.
var globalCounter uint64

// NextCounter 는 1,000,000 에서 0 으로 돌아가는 순번.
// timestamp · instance 조합이 있으므로 wrap-around 되어도 이름이 겹치지 않는다.
func NextCounter() uint64 {
	return atomic.AddUint64(&globalCounter, 1) % 1_000_000
}

// NewFilename 은 c 의 현재 시각으로 출력 파일명을 만든다.
func NewFilename(c *Clock, instanceID string) string {
	return fmt.Sprintf("%d_%s_%06d.jsonl.gz", c.Unix(), instanceID, NextCounter())
}

// BuildS3Key
// ------------------------------------------------------------
// S3 폴더 구조(Partitioning):
//
//	<prefix>/dt=<YYYY-MM-DD>/hr=<HH>/<filename>
//
// prefix 가 비어있으면 dt= 부터 시작한다.
func BuildS3Key(c *Clock, prefix, filename string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return fmt.Sprintf("dt=%s/hr=%s/%s", c.DT(), c.HR(), filename)
	}
	return fmt.Sprintf("%s/dt=%s/hr=%s/%s", prefix, c.DT(), c.HR(), filename)
}
