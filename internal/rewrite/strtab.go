package rewrite

// StringTable builds the two-half (locals, then globals) string table
// described in spec §4.2: a leading NUL, exact-match dedup within each
// half (a map keyed by name), and a global-half rebase once both halves are sized.
type StringTable struct {
	locals  []byte
	globals []byte
	lookup  map[string]uint32 // name -> offset within its own half, pre-rebase
}

func newStringTable() *StringTable {
	return &StringTable{
		locals:  []byte{0},
		globals: []byte{0},
		lookup:  make(map[string]uint32),
	}
}

// insert returns the offset of name within its half (pre-rebase); repeated
// calls with the same name and half return the same offset.
func (t *StringTable) insert(half *[]byte, halfTag string, name string) uint32 {
	if name == "" {
		return 0
	}
	key := halfTag + "\x00" + name
	if off, ok := t.lookup[key]; ok {
		return off
	}
	off := uint32(len(*half))
	*half = append(*half, []byte(name)...)
	*half = append(*half, 0)
	t.lookup[key] = off
	return off
}

// BuildStringTable assigns NameIndex to every planned symbol and returns
// the concatenated string-table bytes (locals half, then globals half
// rebased by the local half's size).
func BuildStringTable(plan *SymbolPlan) []byte {
	t := newStringTable()

	for i := range plan.Locals {
		plan.Locals[i].Symbol.NameIndex = t.insert(&t.locals, "L", plan.Locals[i].Symbol.Name)
	}
	for i := range plan.Globals {
		plan.Globals[i].Symbol.NameIndex = t.insert(&t.globals, "G", plan.Globals[i].Symbol.Name)
	}

	localSize := uint32(len(t.locals))
	for i := range plan.Globals {
		if plan.Globals[i].Symbol.NameIndex != 0 {
			plan.Globals[i].Symbol.NameIndex += localSize
		}
	}

	out := make([]byte, 0, len(t.locals)+len(t.globals))
	out = append(out, t.locals...)
	out = append(out, t.globals...)
	return out
}
