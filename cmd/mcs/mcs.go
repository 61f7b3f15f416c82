// Package mcs implements the `mcs` persona (spec §6): append to, print, or
// delete a named comment-style section (.comment by default).
package mcs

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/embtoolkit/elftoolchain-go/internal/diag"
	"github.com/embtoolkit/elftoolchain-go/internal/persona"
	"github.com/embtoolkit/elftoolchain-go/internal/rewrite"
	"github.com/spf13/cobra"
)

const mcsVersion = "elftoolchain-go mcs"

var (
	appendString  string
	compress      bool
	deleteSection bool
	sectionName   string
	printSection  bool
	showVersion   bool
	verbose       bool
	logFile       string
)

// Cmd is the `mcs` subcommand.
var Cmd = &cobra.Command{
	Use:   "mcs <file>...",
	Short: "Manipulate the comment section of an ELF object",
	Args:  cobra.ArbitraryArgs,
	RunE:  run,
}

func init() {
	f := Cmd.Flags()
	f.StringVarP(&appendString, "append", "a", "", "append STRING to the section")
	f.BoolVarP(&compress, "compress", "c", false, "compress duplicate entries in the section")
	f.BoolVarP(&deleteSection, "delete", "d", false, "delete the section")
	f.StringVarP(&sectionName, "section", "n", ".comment", "operate on a different section")
	f.BoolVarP(&printSection, "print", "p", false, "print the section's contents")
	f.BoolVarP(&showVersion, "version", "V", false, "print the version and exit")
	f.BoolVarP(&verbose, "verbose", "v", false, "log each rewrite phase at debug level")
	f.StringVar(&logFile, "log-file", "", "append a JSON log record for every rewrite phase to this file")
}

func run(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Println(mcsVersion)
		return nil
	}
	if len(args) == 0 {
		return cmd.Usage()
	}

	logger, closeLog, err := diag.NewLogger(verbose, logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	for _, path := range args {
		if err := runOne(path, logger); err != nil {
			diag.Errorf("mcs: %s: %v", path, err)
			return err
		}
	}
	return nil
}

// runOne applies the mcs operation to one file. Per spec §6, -d overrides
// every other operation flag; otherwise print and append both run, in that
// order, since mcs "operations do not respect argument order".
func runOne(path string, logger *slog.Logger) error {
	obj, err := persona.OpenInput(path)
	if err != nil {
		return err
	}

	if deleteSection {
		prog := &rewrite.Program{
			Sections: rewrite.SectionProgram{
				Rules: []rewrite.SectionRule{{Kind: rewrite.SectionRemove, Name: sectionName}},
			},
		}
		result, err := rewrite.Run(obj, prog, logger)
		if err != nil {
			return err
		}
		return persona.CommitOutput(result.Object, path, false, path)
	}

	if printSection {
		section := obj.SectionByName(sectionName)
		if section == nil {
			fmt.Printf("%s: section %s not present\n", path, sectionName)
		} else {
			os.Stdout.Write(section.Data)
		}
	}

	if appendString == "" {
		return nil
	}

	existing := []byte(nil)
	if section := obj.SectionByName(sectionName); section != nil {
		existing = section.Data
	}
	payload := appendEntry(existing, appendString, compress)

	prog := &rewrite.Program{
		Sections: rewrite.SectionProgram{
			Rules: []rewrite.SectionRule{{Kind: rewrite.SectionRemove, Name: sectionName}},
			Additions: []rewrite.AddedSection{
				{Name: sectionName, Data: payload},
			},
		},
	}
	result, err := rewrite.Run(obj, prog, logger)
	if err != nil {
		return err
	}
	return persona.CommitOutput(result.Object, path, false, path)
}

// appendEntry appends entry (plus its terminating NUL, matching .comment's
// on-disk shape of concatenated NUL-terminated strings) to existing,
// optionally skipping the append when compress is set and entry is already
// present verbatim.
func appendEntry(existing []byte, entry string, compress bool) []byte {
	if compress && containsEntry(existing, entry) {
		return existing
	}
	out := append([]byte(nil), existing...)
	out = append(out, []byte(entry)...)
	out = append(out, 0)
	return out
}

func containsEntry(data []byte, entry string) bool {
	needle := []byte(entry)
	start := 0
	for i, b := range data {
		if b == 0 {
			if string(data[start:i]) == string(needle) {
				return true
			}
			start = i + 1
		}
	}
	return start < len(data) && string(data[start:]) == string(needle)
}
