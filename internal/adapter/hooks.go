// internal/adapter/hooks.go
package adapter

import (
	"sort"
	"strings"

	"cdr-ingest/internal/model"
)

// RecordTransformer
//
// 레코드 변환 플러그인이 구현하는 hook 집합.
// 어댑터는 문서화된 시점에만 호출하며, 반환값 규칙은 다음과 같다.
//
//   - TransformHeader:    변환된 Header (nil 이면 원본 사용)
//   - TransformRecord:    변환된 레코드 / 다른 레코드 / nil (nil = 해당 줄 suppress)
//   - TransformTrailer:   *model.Trailer 가 나올 때까지 반복 호출된다.
//     Trailer 가 아닌 결과는 배치에 추가되므로, 버퍼링해둔 레코드를 여러 개 흘려보낼 수 있다.
//   - PurgePendingRecord: 스트림 끝에서 1회, trailer 라운드 전에 호출. lookahead 로 들고 있던
//     레코드가 있으면 돌려준다.
type RecordTransformer interface {
	TransformHeader(h *model.Header) *model.Header
	TransformRecord(d *model.Data) model.Record
	TransformTrailer(t *model.Trailer) model.Record
	PurgePendingRecord() model.Record
}

// FilePolicy 는 scan 결과의 순서와 추가 제외 규칙을 정한다.
type FilePolicy interface {
	// OrderFiles 는 glob 에 맞는 후보의 처리 순서를 정한다.
	OrderFiles(names []string) []string

	// FilterFileName 이 false 를 돌려주면 후보에서 제외한다.
	// coordinator 용량을 소모하지 않는다.
	FilterFileName(name, procPrefix string) bool
}

// NopTransformer 는 모든 레코드를 그대로 통과시킨다.
// 일부 hook 만 바꾸고 싶은 구현체는 이 타입을 embed 하면 된다.
type NopTransformer struct{}

func (NopTransformer) TransformHeader(h *model.Header) *model.Header { return h }
func (NopTransformer) TransformRecord(d *model.Data) model.Record { return d }
func (NopTransformer) TransformTrailer(t *model.Trailer) model.Record { return t }
func (NopTransformer) PurgePendingRecord() model.Record { return nil }

// DefaultFilePolicy 는 디렉토리 listing 순서를 그대로 쓰고,
// 이미 processing prefix 를 달고 있는 이름만 제외한다.
type DefaultFilePolicy struct{}

func (DefaultFilePolicy) OrderFiles(names []string) []string { return names }

func (DefaultFilePolicy) FilterFileName(name, procPrefix string) bool {
	return !strings.HasPrefix(name, procPrefix)
}

// SortedFilePolicy 는 이름의 사전순으로 처리한다.
// 파일명에 timestamp 가 들어가는 CDR 규칙에서는 사전순 = 생성 시간순이다.
type SortedFilePolicy struct {
	DefaultFilePolicy
}

func (SortedFilePolicy) OrderFiles(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
