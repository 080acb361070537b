// internal/adapter/naming.go
package adapter

import (
	"path/filepath"
	"strings"
)

// naming.go
// ------------------------------------------------------------
// 트랜잭션마다 필요한 파일명 4종을 계산하는 순수 함수 모음.
//
//	input: <inputPath>/<fileName>
//	proc:  <inputPath>/<procPrefix><fileName>        (원래 이름 유지 + marker)
//	done:  <donePath>/<donePrefix><base><doneSuffix>
//	error: <errPath>/<errPrefix><base><errSuffix>
//
// base 는 fileName 에서 input prefix(앞)와 suffix(뒤)를 한 번씩 제거한 값.
// proc 이름은 원래 prefix 를 유지하므로 scan glob 에 다시 걸릴 수 있지만,
// processing prefix 로 시작하는 이름은 secondary filter 가 거른다.

// BaseName strips prefix (anchored at start) and suffix (anchored at end) once.
func BaseName(fileName, prefix, suffix string) string {
	base := strings.TrimPrefix(fileName, prefix)
	return strings.TrimSuffix(base, suffix)
}

func InputName(fileName, inputPath string) string {
	return filepath.Join(inputPath, fileName)
}

func ProcName(fileName, inputPath, procPrefix string) string {
	return filepath.Join(inputPath, procPrefix+fileName)
}

func DoneName(fileName, inPrefix, inSuffix, donePath, donePrefix, doneSuffix string) string {
	return filepath.Join(donePath, donePrefix+BaseName(fileName, inPrefix, inSuffix)+doneSuffix)
}

func ErrorName(fileName, inPrefix, inSuffix, errPath, errPrefix, errSuffix string) string {
	return filepath.Join(errPath, errPrefix+BaseName(fileName, inPrefix, inSuffix)+errSuffix)
}

// Location 은 디렉토리 + 파일명 prefix/suffix 조합.
type Location struct {
	Path   string
	Prefix string
	Suffix string
}

// triple 은 설정 충돌 검사에 쓰는 path+prefix+suffix 문자열.
func (l Location) triple() string {
	return l.Path + l.Prefix + l.Suffix
}

// Scheme 은 input/done/error 위치와 processing prefix 를 묶은 이름 규칙.
type Scheme struct {
	Input      Location
	Done       Location
	Error      Location
	ProcPrefix string
}

// FileNames 는 claim 시점에 한 번 계산되고 이후 변하지 않는 트랜잭션의 이름 집합.
type FileNames struct {
	Input string
	Proc  string
	Done  string
	Error string
	Base  string
}

// Names 는 입력 디렉토리 안의 fileName 에 대한 이름 집합을 계산한다.
func (s Scheme) Names(fileName string) FileNames {
	return FileNames{
		Input: InputName(fileName, s.Input.Path),
		Proc:  ProcName(fileName, s.Input.Path, s.ProcPrefix),
		Done:  DoneName(fileName, s.Input.Prefix, s.Input.Suffix, s.Done.Path, s.Done.Prefix, s.Done.Suffix),
		Error: ErrorName(fileName, s.Input.Prefix, s.Input.Suffix, s.Error.Path, s.Error.Prefix, s.Error.Suffix),
		Base:  BaseName(fileName, s.Input.Prefix, s.Input.Suffix),
	}
}
