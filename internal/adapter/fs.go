// internal/adapter/fs.go
package adapter

import (
	"io"
	"io/fs"
	"os"
)

// FS
//
// 어댑터가 사용하는 파일시스템 연산의 전부.
// 상태 머신을 실제 디스크 없이 테스트할 수 있도록 주입 가능하게 둔다.
//
// Rename 은 파일 상태(pending → claimed → done/error)를 바꾸는 유일한 수단이며
// 원자적이어야 한다. 같은 파일을 두 프로세스가 동시에 rename 하면
// 한 쪽만 성공하고 나머지는 source 없음으로 실패한다.
type FS interface {
	ReadDir(dir string) ([]fs.DirEntry, error)
	Rename(oldpath, newpath string) error
	Open(name string) (io.ReadCloser, error)
	Stat(name string) (fs.FileInfo, error)
}

// OSFS 는 os 패키지 기반 구현.
type OSFS struct{}

func (OSFS) ReadDir(dir string) ([]fs.DirEntry, error) { return os.ReadDir(dir) }

func (OSFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

func (OSFS) Open(name string) (io.ReadCloser, error) { return os.Open(name) }

func (OSFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
