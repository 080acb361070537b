// internal/adapter/options.go
package adapter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// 런타임에 조회 가능한 옵션 이름.
// 값의 변경은 초기화 중에만 허용된다.
const (
	OptInputFilePath    = "InputFilePath"
	OptDoneFilePath     = "DoneFilePath"
	OptErrFilePath      = "ErrFilePath"
	OptInputFilePrefix  = "InputFilePrefix"
	OptDoneFilePrefix   = "DoneFilePrefix"
	OptErrFilePrefix    = "ErrFilePrefix"
	OptInputFileSuffix  = "InputFileSuffix"
	OptDoneFileSuffix   = "DoneFileSuffix"
	OptErrFileSuffix    = "ErrFileSuffix"
	OptProcessingPrefix = "ProcessingPrefix"
	OptBatchSize        = "BatchSize"
)

// OptionNames 는 등록된 모든 옵션 이름 (admin API 목록용).
var OptionNames = []string{
	OptInputFilePath, OptDoneFilePath, OptErrFilePath,
	OptInputFilePrefix, OptDoneFilePrefix, OptErrFilePrefix,
	OptInputFileSuffix, OptDoneFileSuffix, OptErrFileSuffix,
	OptProcessingPrefix, OptBatchSize,
}

type settings struct {
	inputPath, donePath, errPath       string
	inputPrefix, donePrefix, errPrefix string
	inputSuffix, doneSuffix, errSuffix string
	procPrefix                         string
	batchSize                          int
}

func (s settings) scheme() Scheme {
	return Scheme{
		Input:      Location{Path: s.inputPath, Prefix: s.inputPrefix, Suffix: s.inputSuffix},
		Done:       Location{Path: s.donePath, Prefix: s.donePrefix, Suffix: s.doneSuffix},
		Error:      Location{Path: s.errPath, Prefix: s.errPrefix, Suffix: s.errSuffix},
		ProcPrefix: s.procPrefix,
	}
}

// field 는 옵션 이름(소문자)에 대응하는 문자열 필드 포인터.
func (s *settings) field(command string) *string {
	switch strings.ToLower(command) {
	case strings.ToLower(OptInputFilePath):
		return &s.inputPath
	case strings.ToLower(OptDoneFilePath):
		return &s.donePath
	case strings.ToLower(OptErrFilePath):
		return &s.errPath
	case strings.ToLower(OptInputFilePrefix):
		return &s.inputPrefix
	case strings.ToLower(OptDoneFilePrefix):
		return &s.donePrefix
	case strings.ToLower(OptErrFilePrefix):
		return &s.errPrefix
	case strings.ToLower(OptInputFileSuffix):
		return &s.inputSuffix
	case strings.ToLower(OptDoneFileSuffix):
		return &s.doneSuffix
	case strings.ToLower(OptErrFileSuffix):
		return &s.errSuffix
	case strings.ToLower(OptProcessingPrefix):
		return &s.procPrefix
	}
	return nil
}

// ProcessControlEvent
//
// 옵션 조회/설정의 단일 진입점. 이름은 대소문자를 구분하지 않는다.
//
//   - init=true:  초기화 중 값 설정. "OK" 를 돌려준다.
//   - init=false, param == "": 현재 값 조회.
//   - init=false, param != "": ErrNotDynamic.
//
// 초기화가 끝난 뒤의 init=true 호출도 ErrNotDynamic 으로 거절한다.
func (a *Adapter) ProcessControlEvent(command string, init bool, param string) (string, error) {
	isBatch := strings.EqualFold(command, OptBatchSize)
	ptr := a.settings.field(command)
	if ptr == nil && !isBatch {
		return "", fmt.Errorf("%w: %s", ErrUnknownOption, command)
	}

	if !init {
		if param != "" {
			return "", fmt.Errorf("%w: %s", ErrNotDynamic, command)
		}
		if isBatch {
			return strconv.Itoa(a.settings.batchSize), nil
		}
		return *ptr, nil
	}

	if a.initialised.Load() {
		return "", fmt.Errorf("%w: %s", ErrNotDynamic, command)
	}

	if isBatch {
		n, err := strconv.Atoi(param)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidConfig, OptBatchSize, param)
		}
		a.settings.batchSize = n
	} else {
		*ptr = param
	}

	a.log.Debug().Str("command", command).Str("param", param).Msg("control event applied")
	return "OK", nil
}

// validate
//
// 시작 시점 검증. 실패하면 프로세스를 시작하지 않는다.
//   - 입력/완료/에러 경로는 존재하는 디렉토리여야 한다 (비어있으면 "." 로 대체)
//   - done/error, input/error, done/input 의 path+prefix+suffix 가 같으면 안 된다
//     (같으면 rename 이 자기 자신 또는 다른 상태의 파일을 덮어쓴다)
func (a *Adapter) validate() error {
	s := &a.settings

	dirs := []struct {
		label string
		path  *string
	}{
		{"input", &s.inputPath},
		{"done", &s.donePath},
		{"error", &s.errPath},
	}
	for _, d := range dirs {
		if *d.path == "" {
			*d.path = "."
			a.log.Warn().Str("kind", d.label).Msg("file path not set, defaulting to <.>")
		}
		info, err := a.fs.Stat(*d.path)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s file path <%s> does not exist or is not a directory", ErrInvalidConfig, d.label, *d.path)
		}
	}

	sc := s.scheme()
	switch {
	case sc.Done.triple() == sc.Error.triple():
		return fmt.Errorf("%w: done file and error file cannot be the same", ErrInvalidConfig)
	case sc.Input.triple() == sc.Error.triple():
		return fmt.Errorf("%w: input file and error file cannot be the same", ErrInvalidConfig)
	case sc.Done.triple() == sc.Input.triple():
		return fmt.Errorf("%w: done file and input file cannot be the same", ErrInvalidConfig)
	}

	if s.batchSize <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, OptBatchSize)
	}
	return nil
}

// logOptions 는 현재 옵션 값을 debug 레벨로 남긴다.
func (a *Adapter) logOptions(ev *zerolog.Event) *zerolog.Event {
	for _, name := range OptionNames {
		v, _ := a.ProcessControlEvent(name, false, "")
		ev = ev.Str(name, v)
	}
	return ev
}
