// Package copy implements the `copy`/objcopy persona (spec §6): every
// strip option plus section renaming/flag-setting, section addition, and
// symbol visibility rewrites.
package copy

import (
	"fmt"
	"os"
	"strings"

	"github.com/embtoolkit/elftoolchain-go/internal/diag"
	"github.com/embtoolkit/elftoolchain-go/internal/elf"
	"github.com/embtoolkit/elftoolchain-go/internal/persona"
	"github.com/embtoolkit/elftoolchain-go/internal/rewrite"
	"github.com/spf13/cobra"
)

var (
	removeSections  []string
	onlySections    []string
	stripAll        bool
	stripDebug      bool
	keepSymbols     []string
	stripSymbols    []string
	localizeSymbols []string
	globalizeSyms   []string
	weakenSymbols   []string
	localizeFile    string
	globalizeFile   string
	addSections     []string
	renameSections  []string
	setSectionFlags []string
	outputFile      string
	outputTarget    string
	preserveDates   bool
	discardAll      bool
	stripUnneeded   bool
	onlyKeepDebug   bool
	weakenAll       bool
	verbose         bool
	logFile         string
)

// Cmd is the `copy` subcommand.
var Cmd = &cobra.Command{
	Use:     "copy <in> [out]",
	Aliases: []string{"objcopy"},
	Short:   "Copy an ELF object, optionally rewriting its sections and symbols",
	Args:    cobra.RangeArgs(1, 2),
	RunE:    run,
}

func init() {
	f := Cmd.Flags()
	f.StringArrayVarP(&removeSections, "remove-section", "R", nil, "remove a named section")
	f.StringArrayVarP(&onlySections, "only-section", "j", nil, "keep only the named sections")
	f.BoolVarP(&stripAll, "strip-all", "s", false, "remove all symbol and relocation info")
	f.BoolVarP(&stripDebug, "strip-debug", "S", false, "remove debugging symbols only")
	f.BoolVarP(&stripDebug, "strip-debug-g", "g", false, "alias for --strip-debug")
	f.BoolVarP(&stripDebug, "strip-debug-d", "d", false, "alias for --strip-debug")
	f.StringArrayVarP(&keepSymbols, "keep-symbol", "K", nil, "keep a named symbol even under --strip-all")
	f.StringArrayVarP(&stripSymbols, "strip-symbol", "N", nil, "remove a named symbol")
	f.StringArrayVarP(&localizeSymbols, "localize-symbol", "L", nil, "force a named symbol local")
	f.StringArrayVar(&globalizeSyms, "globalize-symbol", nil, "force a named symbol global")
	f.StringArrayVar(&weakenSymbols, "weaken-symbol", nil, "force a named symbol weak")
	f.StringVar(&localizeFile, "localize-symbols", "", "file listing symbols to force local")
	f.StringVar(&globalizeFile, "globalize-symbols", "", "file listing symbols to force global")
	f.StringArrayVar(&addSections, "add-section", nil, "NAME=FILE: add a section with FILE's contents")
	f.StringArrayVar(&renameSections, "rename-section", nil, "OLD=NEW[,FLAGS]: rename a section, optionally setting flags")
	f.StringArrayVar(&setSectionFlags, "set-section-flags", nil, "NAME=FLAGS: set a section's flags")
	f.StringVarP(&outputFile, "output-file", "o", "", "write output to a different path")
	f.StringVarP(&outputTarget, "output-target", "O", "", "override output class/endianness")
	f.BoolVarP(&preserveDates, "preserve-dates", "p", false, "preserve the input file's modification time")
	f.BoolVarP(&discardAll, "discard-all", "x", false, "discard all local symbols")
	f.BoolVarP(&discardAll, "discard-locals", "X", false, "alias for --discard-all")
	f.BoolVar(&stripUnneeded, "strip-unneeded", false, "remove symbols not needed for relocation processing")
	f.BoolVar(&onlyKeepDebug, "only-keep-debug", false, "keep only debug sections")
	f.BoolVar(&weakenAll, "weaken", false, "force every global symbol weak")
	f.BoolVarP(&verbose, "verbose", "v", false, "log each rewrite phase at debug level")
	f.StringVar(&logFile, "log-file", "", "append a JSON log record for every rewrite phase to this file")
}

func run(cmd *cobra.Command, args []string) error {
	in := args[0]
	out := in
	if len(args) == 2 {
		out = args[1]
	} else if outputFile != "" {
		out = outputFile
	}

	logger, closeLog, err := diag.NewLogger(verbose, logFile)
	if err != nil {
		return err
	}
	defer closeLog()

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
		diag.Errorf("copy: %s: %v", in, err)
		return err
	}
	if err := persona.CommitOutput(result.Object, out, preserveDates, in); err != nil {
		diag.Errorf("copy: %s: %v", in, err)
		return err
	}
	for _, w := range result.Warnings {
		diag.Warnf("copy: %s: %s", in, w)
	}
	return nil
}

func buildProgram(obj *elf.Object) (*rewrite.Program, error) {
	prog := &rewrite.Program{}

	for _, name := range removeSections {
		prog.Sections.Rules = append(prog.Sections.Rules, rewrite.SectionRule{Kind: rewrite.SectionRemove, Name: name})
	}
	prog.Sections.OnlyKeep = append(prog.Sections.OnlyKeep, onlySections...)
	if onlyKeepDebug {
		for _, s := range obj.Sections() {
			if strings.HasPrefix(s.Name, ".debug") || s.Name == ".comment" {
				prog.Sections.OnlyKeep = append(prog.Sections.OnlyKeep, s.Name)
			}
		}
	}

	for _, spec := range addSections {
		name, path, ok := splitKV(spec, "=")
		if !ok {
			return nil, fmt.Errorf("copy: --add-section expects NAME=FILE, got %q", spec)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("copy: --add-section %s: %w", name, err)
		}
		prog.Sections.Additions = append(prog.Sections.Additions, rewrite.AddedSection{Name: name, Data: data})
	}

	for _, spec := range renameSections {
		oldNew, flagsTok, _ := strings.Cut(spec, ",")
		oldName, newName, ok := splitKV(oldNew, "=")
		if !ok {
			return nil, fmt.Errorf("copy: --rename-section expects OLD=NEW[,FLAGS], got %q", spec)
		}
		rule := rewrite.SectionRule{Kind: rewrite.SectionRename, Name: oldName, NewName: newName}
		if flagsTok != "" {
			flags, warnings, err := elf.ParseFlagTokens(flagsTok)
			if err != nil {
				return nil, err
			}
			for _, w := range warnings {
				diag.Warnf("copy: --rename-section %s: %s", spec, w)
			}
			rule.Flags, rule.HasFlags = flags, true
		}
		prog.Sections.Rules = append(prog.Sections.Rules, rule)
	}

	for _, spec := range setSectionFlags {
		name, flagsTok, ok := splitKV(spec, "=")
		if !ok {
			return nil, fmt.Errorf("copy: --set-section-flags expects NAME=FLAGS, got %q", spec)
		}
		flags, warnings, err := elf.ParseFlagTokens(flagsTok)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			diag.Warnf("copy: --set-section-flags %s: %s", spec, w)
		}
		prog.Sections.Rules = append(prog.Sections.Rules, rewrite.SectionRule{Kind: rewrite.SectionSetFlags, Name: name, Flags: flags, HasFlags: true})
	}

	for _, name := range keepSymbols {
		prog.Symbols.Rules = append(prog.Symbols.Rules, rewrite.SymbolRule{Kind: rewrite.SymbolKeep, Name: name})
	}
	for _, name := range stripSymbols {
		prog.Symbols.Rules = append(prog.Symbols.Rules, rewrite.SymbolRule{Kind: rewrite.SymbolStrip, Name: name})
	}
	for _, name := range localizeSymbols {
		prog.Symbols.Rules = append(prog.Symbols.Rules, rewrite.SymbolRule{Kind: rewrite.SymbolLocalize, Name: name})
	}
	for _, name := range globalizeSyms {
		prog.Symbols.Rules = append(prog.Symbols.Rules, rewrite.SymbolRule{Kind: rewrite.SymbolGlobalize, Name: name})
	}
	for _, name := range weakenSymbols {
		prog.Symbols.Rules = append(prog.Symbols.Rules, rewrite.SymbolRule{Kind: rewrite.SymbolWeaken, Name: name})
	}
	if localizeFile != "" {
		names, err := persona.ReadSymbolList(localizeFile)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			prog.Symbols.Rules = append(prog.Symbols.Rules, rewrite.SymbolRule{Kind: rewrite.SymbolLocalize, Name: name})
		}
	}
	if globalizeFile != "" {
		names, err := persona.ReadSymbolList(globalizeFile)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			prog.Symbols.Rules = append(prog.Symbols.Rules, rewrite.SymbolRule{Kind: rewrite.SymbolGlobalize, Name: name})
		}
	}

	prog.Symbols.StripAll = stripAll
	prog.Symbols.StripDebug = stripDebug
	prog.Symbols.StripUnneeded = stripUnneeded
	prog.Symbols.DiscardLocal = discardAll
	prog.Symbols.StripNondebug = onlyKeepDebug
	prog.Symbols.WeakenAll = weakenAll
	prog.Symbols.Relocatable = obj.Header.Type == elf.ET_REL

	class, data, err := parseOutputTarget(outputTarget)
	if err != nil {
		return nil, err
	}
	prog.OutputClass = class
	prog.OutputData = data

	return prog, nil
}

func splitKV(s, sep string) (string, string, bool) {
	before, after, found := strings.Cut(s, sep)
	return before, after, found
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
		return elf.ELFCLASSNONE, elf.ELFDATANONE, fmt.Errorf("copy: unknown output target %q", target)
	}
}
