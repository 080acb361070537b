// internal/model/record.go
package model

// Kind
// ------------------------------------------------------------
// 파이프라인을 흐르는 레코드의 종류.
// Header / Trailer 는 트랜잭션(=입력 파일 1개)의 시작과 끝을 알리는
// sentinel 레코드이고, Data 는 파일의 한 줄에 해당한다.
type Kind int

const (
	KindHeader Kind = iota
	KindData
	KindTrailer
	KindCustom // transform hook 이 만들어낸 도메인 레코드
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindData:
		return "data"
	case KindTrailer:
		return "trailer"
	default:
		return "record"
	}
}

// Record 는 배치에 담길 수 있는 모든 레코드가 구현한다.
// transform hook 은 Data 대신 임의의 도메인 레코드를 돌려줄 수 있으므로
// 인터페이스는 최소한으로 유지한다.
type Record interface {
	RecordKind() Kind
}

// Header
// ------------------------------------------------------------
// 트랜잭션의 첫 레코드. StreamName 은 prefix/suffix 를 제거한 base name.
type Header struct {
	StreamName    string `json:"stream"`
	TransactionID int    `json:"txn"`
}

func (*Header) RecordKind() Kind { return KindHeader }

// Data
// ------------------------------------------------------------
// 입력 파일의 비어있지 않은 한 줄.
// Seq 는 스트림 내부 순번이며 0 부터 단조 증가한다.
type Data struct {
	Line string `json:"line"`
	Seq  int    `json:"seq"`
}

func (*Data) RecordKind() Kind { return KindData }

// Trailer
// ------------------------------------------------------------
// 트랜잭션의 마지막 레코드. downstream 은 이 레코드를 보고 스트림 종료를 안다.
type Trailer struct {
	StreamName    string `json:"stream"`
	TransactionID int    `json:"txn"`
}

func (*Trailer) RecordKind() Kind { return KindTrailer }

// IsSentinel 은 Header 또는 Trailer 인지 판단한다.
// abort 처리 시 sentinel 만 배치에 남기기 위해 사용한다.
func IsSentinel(r Record) bool {
	switch r.(type) {
	case *Header, *Trailer:
		return true
	}
	return false
}
