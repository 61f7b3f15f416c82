// Package persona holds the logic shared by the strip, copy, and mcs
// command-line personas: opening an input object, running the rewriter,
// and committing the result through the scoped temporary-file acquisition
// spec §9 describes (open, write, rename-or-unlink).
package persona

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/embtoolkit/elftoolchain-go/internal/elf"
	"github.com/embtoolkit/elftoolchain-go/internal/rewrite"
)

// OpenInput parses the ELF object at path.
func OpenInput(path string) (*elf.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	obj, err := elf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return obj, nil
}

// CommitOutput writes obj to outPath via a temporary file (in $TMPDIR when
// set, otherwise in outPath's directory), renamed into place on success and unlinked on any failure — the scoped
// acquisition spec §9 requires so a run never leaves a partial output.
// srcPath, if non-empty, supplies the mode to copy and (when preserveDates
// is set) the modification time to restore.
func CommitOutput(obj *elf.Object, outPath string, preserveDates bool, srcPath string) error {
	var srcInfo os.FileInfo
	if srcPath != "" {
		srcInfo, _ = os.Stat(srcPath)
	}

	dir := os.Getenv("TMPDIR")
	if dir == "" {
		dir = filepath.Dir(outPath)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(outPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary output: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		tmp.Close()
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := obj.Commit(tmp); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary output: %w", err)
	}

	mode := os.FileMode(0o755)
	if srcInfo != nil {
		mode = srcInfo.Mode()
	}
	_ = os.Chmod(tmpPath, mode)

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	committed = true

	if preserveDates && srcInfo != nil {
		_ = os.Chtimes(outPath, srcInfo.ModTime(), srcInfo.ModTime())
	}

	return nil
}

// Run opens in, applies prog, and writes the result to out in one call;
// the persona commands perform these steps themselves. logger receives one record per
// rewrite phase; pass nil to run silently.
func Run(in string, out string, preserveDates bool, prog *rewrite.Program, logger *slog.Logger) (*rewrite.Result, error) {
	obj, err := OpenInput(in)
	if err != nil {
		return nil, err
	}

	result, err := rewrite.Run(obj, prog, logger)
	if err != nil {
		return nil, err
	}

	if err := CommitOutput(result.Object, out, preserveDates, in); err != nil {
		return nil, err
	}
	return result, nil
}

// ReadSymbolList reads a localize-symbols/globalize-symbols style file: one
// name per line, leading/trailing whitespace stripped, '#'-prefixed and
// blank lines ignored (spec §6).
func ReadSymbolList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading symbol list %s: %w", path, err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading symbol list %s: %w", path, err)
	}
	return names, nil
}
