// internal/resource/registry.go
package resource

import (
	"errors"
	"fmt"
	"sync"
)

// LogResourceKey 는 로그 리소스가 등록되는 이름.
// Cleanup 은 이 이름의 리소스를 항상 마지막에 닫는다.
const LogResourceKey = "logger"

// ErrInvalidResource 는 이름이 비었거나 리소스가 nil 일 때 반환된다.
var ErrInvalidResource = errors.New("invalid resource")

// Resource 는 프로세스 종료 시 정리되어야 하는 모든 구성요소가 구현한다.
type Resource interface {
	Close() error
}

// Registry
//
// 시작 시점에 명시적으로 생성해서 필요한 곳에 넘겨주는 리소스 목록.
// (전역 singleton 이 아니다)
//
// 종료는 2단계로 이루어진다:
//  1. 로그 리소스를 제외한 모든 리소스를 등록 순서대로 Close
//  2. 로그 리소스를 마지막에 Close
//
// 1단계에서 리소스들이 남기는 종료 로그가 유실되지 않게 하기 위한 순서다.
type Registry struct {
	mu     sync.Mutex
	names  []string
	byName map[string]Resource
	active bool
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Resource)}
}

// Register 는 name 으로 리소스를 등록한다. 같은 이름은 덮어쓰되 순서는 유지한다.
func (r *Registry) Register(name string, res Resource) error {
	if name == "" {
		return fmt.Errorf("%w: empty name for %T", ErrInvalidResource, res)
	}
	if res == nil {
		return fmt.Errorf("%w: nil resource for %q", ErrInvalidResource, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; !ok {
		r.names = append(r.names, name)
	}
	r.byName[name] = res
	r.active = true
	return nil
}

// Get 은 등록된 리소스를 돌려준다. 없으면 nil.
func (r *Registry) Get(name string) Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byName[name]
}

// Keys 는 등록 순서대로의 이름 목록.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func (r *Registry) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Cleanup 은 모든 리소스를 닫고 registry 를 비운다.
// 개별 Close 에러는 모아서(errors.Join) 돌려주며, 하나가 실패해도 나머지는 계속 닫는다.
func (r *Registry) Cleanup() error {
	r.mu.Lock()
	names := r.names
	byName := r.byName
	r.names = nil
	r.byName = make(map[string]Resource)
	r.active = false
	r.mu.Unlock()

	var errs []error
	for _, name := range names {
		if name == LogResourceKey {
			continue
		}
		if err := byName[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}

	if logRes, ok := byName[LogResourceKey]; ok {
		if err := logRes.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", LogResourceKey, err))
		}
	}
	return errors.Join(errs...)
}
