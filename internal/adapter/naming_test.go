package adapter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, file, prefix, suffix, want string
	}{
		{"prefix and suffix", "CDR_001.txt", "CDR_", ".txt", "001"},
		{"empty prefix", "001.txt", "", ".txt", "001"},
		{"empty suffix", "CDR_001.txt", "CDR_", "", "001.txt"},
		{"prefix not at start", "X_CDR_001.txt", "CDR_", ".txt", "X_CDR_001"},
		{"strips once", "CDR_CDR_001.txt.txt", "CDR_", ".txt", "CDR_001.txt"},
		{"regex characters are literal", "a.b.c", "a.", ".c", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseName(tt.file, tt.prefix, tt.suffix))
		})
	}
}

func TestSchemeNames(t *testing.T) {
	t.Parallel()

	s := Scheme{
		Input:      Location{Path: "/in", Prefix: "CDR_", Suffix: ".txt"},
		Done:       Location{Path: "/done", Prefix: "OK_", Suffix: ".done"},
		Error:      Location{Path: "/err", Prefix: "KO_", Suffix: ".err"},
		ProcPrefix: "tmp",
	}

	got := s.Names("CDR_001.txt")
	assert.Equal(t, FileNames{
		Input: filepath.Join("/in", "CDR_001.txt"),
		Proc:  filepath.Join("/in", "tmpCDR_001.txt"),
		Done:  filepath.Join("/done", "OK_001.done"),
		Error: filepath.Join("/err", "KO_001.err"),
		Base:  "001",
	}, got)
}

func TestDoneAndErrorNamesRoundTrip(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"001", "20240101_a", "x", "with.dots.in"} {
		done := filepath.Base(DoneName("CDR_"+base+".txt", "CDR_", ".txt", "/d", "P_", ".s"))
		assert.Equal(t, base, BaseName(done, "P_", ".s"), "done name for %q", base)

		errName := filepath.Base(ErrorName("CDR_"+base+".txt", "CDR_", ".txt", "/e", "E_", ".bad"))
		assert.Equal(t, base, BaseName(errName, "E_", ".bad"), "error name for %q", base)
	}
}
