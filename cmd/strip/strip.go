// Package strip implements the `strip` persona (spec §6): drop symbol and
// debug information from an ELF object, optionally in place.
package strip

import (
	"fmt"
	"strings"

	"github.com/embtoolkit/elftoolchain-go/internal/diag"
	"github.com/embtoolkit/elftoolchain-go/internal/elf"
	"github.com/embtoolkit/elftoolchain-go/internal/persona"
	"github.com/embtoolkit/elftoolchain-go/internal/rewrite"
	"github.com/spf13/cobra"
)

var (
	removeSections []string
	stripAll       bool
	stripDebug     bool
	keepSymbols    []string
	stripSymbols   []string
	outputFile     string
	outputTarget   string
	preserveDates  bool
	discardAll     bool
	stripUnneeded  bool
	onlyKeepDebug  bool
	verbose        bool
	logFile        string
)

// Cmd is the `strip` subcommand.
var Cmd = &cobra.Command{
	Use:   "strip <file>...",
	Short: "Discard symbols and debug information from an ELF object",
	Args:  cobra.MinimumNArgs(1),
	RunE:  run,
}

func init() {
	f := Cmd.Flags()
	f.StringArrayVarP(&removeSections, "remove-section", "R", nil, "remove a named section")
	f.BoolVarP(&stripAll, "strip-all", "s", false, "remove all symbol and relocation info")
	f.BoolVarP(&stripDebug, "strip-debug", "S", false, "remove debugging symbols only")
	f.BoolVarP(&stripDebug, "strip-debug-g", "g", false, "alias for --strip-debug")
	f.BoolVarP(&stripDebug, "strip-debug-d", "d", false, "alias for --strip-debug")
	f.StringArrayVarP(&keepSymbols, "keep-symbol", "K", nil, "keep a named symbol even under --strip-all")
	f.StringArrayVarP(&stripSymbols, "strip-symbol", "N", nil, "remove a named symbol")
	f.StringVarP(&outputFile, "output-file", "o", "", "write output to a different path")
	f.StringVarP(&outputTarget, "output-target", "O", "", "override output class/endianness (elf32-little, elf32-big, elf64-little, elf64-big)")
	f.BoolVarP(&preserveDates, "preserve-dates", "p", false, "preserve the input file's modification time")
	f.BoolVarP(&discardAll, "discard-all", "x", false, "discard all local symbols")
	f.BoolVarP(&discardAll, "discard-locals", "X", false, "alias for --discard-all")
	f.BoolVar(&stripUnneeded, "strip-unneeded", false, "remove symbols not needed for relocation processing")
	f.BoolVar(&onlyKeepDebug, "only-keep-debug", false, "keep only debug sections")
	f.BoolVarP(&verbose, "verbose", "v", false, "log each rewrite phase at debug level")
	f.StringVar(&logFile, "log-file", "", "append a JSON log record for every rewrite phase to this file")
}

func run(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := diag.NewLogger(verbose, logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	for _, in := range args {
		out := outputFile
		if out == "" {
			out = in
		}

		obj, err := persona.OpenInput(in)
		if err != nil {
			return err
		}

		prog, err := buildProgram(obj)
		if err != nil {
			return err
		}

		result, err := rewrite.Run(obj, prog, logger)
		if err != nil {
			diag.Errorf("strip: %s: %v", in, err)
			return err
		}
		if err := persona.CommitOutput(result.Object, out, preserveDates, in); err != nil {
			diag.Errorf("strip: %s: %v", in, err)
			return err
		}
		for _, w := range result.Warnings {
			diag.Warnf("strip: %s: %s", in, w)
		}
	}
	return nil
}

// buildProgram turns the parsed flags into a rewrite.Program. Flags that
// need the already-opened object (--only-keep-debug's section list) are
// resolved here rather than at flag-parse time.
func buildProgram(obj *elf.Object) (*rewrite.Program, error) {
	prog := &rewrite.Program{}

	for _, name := range removeSections {
		prog.Sections.Rules = append(prog.Sections.Rules, rewrite.SectionRule{Kind: rewrite.SectionRemove, Name: name})
	}

	for _, name := range keepSymbols {
		prog.Symbols.Rules = append(prog.Symbols.Rules, rewrite.SymbolRule{Kind: rewrite.SymbolKeep, Name: name})
	}
	for _, name := range stripSymbols {
		prog.Symbols.Rules = append(prog.Symbols.Rules, rewrite.SymbolRule{Kind: rewrite.SymbolStrip, Name: name})
	}

	prog.Symbols.StripDebug = stripDebug
	prog.Symbols.StripUnneeded = stripUnneeded
	prog.Symbols.DiscardLocal = discardAll
	prog.Symbols.StripNondebug = onlyKeepDebug

	noExplicitChoice := !stripAll && !stripDebug && !stripUnneeded && !discardAll && !onlyKeepDebug &&
		len(stripSymbols) == 0 && len(removeSections) == 0
	if noExplicitChoice {
		stripAll = true
	}
	prog.Symbols.StripAll = stripAll

	if onlyKeepDebug {
		prog.Sections.OnlyKeep = debugSectionNames(obj)
	}

	class, data, err := parseOutputTarget(outputTarget)
	if err != nil {
		return nil, err
	}
	prog.OutputClass = class
	prog.OutputData = data

	return prog, nil
}

// debugSectionNames lists every ".debug*"-named section plus .comment, the
// set --only-keep-debug retains by name.
func debugSectionNames(obj *elf.Object) []string {
	var names []string
	for _, s := range obj.Sections() {
		if strings.HasPrefix(s.Name, ".debug") || s.Name == ".comment" {
			names = append(names, s.Name)
		}
	}
	return names
}

func parseOutputTarget(target string) (elf.Class, elf.Data, error) {
	if target == "" {
		return elf.ELFCLASSNONE, elf.ELFDATANONE, nil
	}
	switch strings.ToLower(target) {
	case "elf32-little":
		return elf.ELFCLASS32, elf.ELFDATA2LSB, nil
	case "elf32-big":
		return elf.ELFCLASS32, elf.ELFDATA2MSB, nil
	case "elf64-little":
		return elf.ELFCLASS64, elf.ELFDATA2LSB, nil
	case "elf64-big":
		return elf.ELFCLASS64, elf.ELFDATA2MSB, nil
	default:
		return elf.ELFCLASSNONE, elf.ELFDATANONE, fmt.Errorf("strip: unknown output target %q", target)
	}
}
