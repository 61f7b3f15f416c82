package elf

import (
	"fmt"
	"strings"
)

// ParseFlagTokens parses the comma-separated, case-insensitive flag
// vocabulary recognized by SET_SECTION_FLAGS and RENAME_SECTION (spec
// §4.3): alloc, load, noload, readonly, debug, code, data, rom, share,
// contents. Unrecognized tokens produce a soft warning (returned
// separately, not as an error) rather than aborting — per spec §7,
// unrecognized section flags inside an otherwise-valid set are warnings.
func ParseFlagTokens(tokens string) (flags SectionFlag, warnings []string, err error) {
	if tokens == "" {
		return 0, nil, nil
	}
	for _, tok := range strings.Split(tokens, ",") {
		tok = strings.TrimSpace(strings.ToLower(tok))
		if tok == "" {
			continue
		}
		switch tok {
		case "alloc":
			flags |= SHF_ALLOC
		case "load":
			flags |= InternalLoad
		case "noload":
			flags |= InternalNoLoad
		case "readonly":
			flags |= InternalReadonly
		case "debug":
			flags |= InternalDebug
		case "code":
			flags |= SHF_EXECINSTR | InternalCode
		case "data":
			flags |= SHF_WRITE | InternalData
		case "rom":
			flags |= InternalROM
		case "share":
			flags |= InternalShared
		case "contents":
			flags |= InternalContents
		default:
			warnings = append(warnings, fmt.Sprintf("unrecognized section flag %q", tok))
		}
	}
	return flags, warnings, nil
}

// ApplyFlags computes the resulting sh_flags after applying a parsed flag
// set on top of an existing one: readonly clears SHF_WRITE, code/data set
// SHF_EXECINSTR/SHF_WRITE as ParseFlagTokens already encoded, and every
// other bit is ORed in (spec concrete scenario 3).
func ApplyFlags(existing SectionFlag, parsed SectionFlag) SectionFlag {
	result := existing | parsed
	if parsed&InternalReadonly != 0 {
		result &^= SHF_WRITE
	}
	return result
}
