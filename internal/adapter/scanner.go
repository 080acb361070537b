// internal/adapter/scanner.go
package adapter

import (
	"fmt"
	"strings"
)

// MatchGlob 은 "prefix*suffix" 패턴 검사.
// '*' 는 최소 한 글자와 매칭되어야 하므로 prefix+suffix 자체는 후보가 아니다.
func MatchGlob(name, prefix, suffix string) bool {
	return len(name) > len(prefix)+len(suffix) &&
		strings.HasPrefix(name, prefix) &&
		strings.HasSuffix(name, suffix)
}

// scan
//
// 입력 디렉토리에서 glob 에 맞는 일반 파일 이름을 FilePolicy 순서로 돌려준다.
// processing prefix 필터는 여기서 적용하지 않는다 (claimer 가 용량 확인 뒤 적용).
func (a *Adapter) scan() ([]string, error) {
	in := a.scheme.Input
	entries, err := a.fs.ReadDir(in.Path)
	if err != nil {
		return nil, fmt.Errorf("read input dir %s: %w", in.Path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if MatchGlob(e.Name(), in.Prefix, in.Suffix) {
			names = append(names, e.Name())
		}
	}
	return a.policy.OrderFiles(names), nil
}
