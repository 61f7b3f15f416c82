package rewrite

import (
	"testing"

	"github.com/embtoolkit/elftoolchain-go/internal/elf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureObject(names ...string) *elf.Object {
	sections := []*elf.Section{{Name: ""}} // reserved index 0
	for _, n := range names {
		sections = append(sections, &elf.Section{Name: n, Type: elf.SHT_PROGBITS})
	}
	return &elf.Object{SectionList: sections}
}

func TestPlanSections_KeepsNullSectionAtZero(t *testing.T) {
	obj := fixtureObject(".text")
	plan, err := PlanSections(obj, &SectionProgram{})
	require.NoError(t, err)

	require.NotEmpty(t, plan.Planned)
	assert.Equal(t, "", plan.Planned[0].Section.Name)
	assert.Equal(t, 0, plan.SecNdx[0])
}

func TestPlanSections_RemoveRule(t *testing.T) {
	obj := fixtureObject(".text", ".data")
	prog := &SectionProgram{Rules: []SectionRule{{Kind: SectionRemove, Name: ".data"}}}

	plan, err := PlanSections(obj, prog)
	require.NoError(t, err)

	var names []string
	for _, p := range plan.Planned {
		names = append(names, p.Section.Name)
	}
	assert.Contains(t, names, ".text")
	assert.NotContains(t, names, ".data")
	assert.Equal(t, 0, plan.SecNdx[2]) // .data was input index 2, removed -> 0
}

func TestPlanSections_RenameAppliesFlags(t *testing.T) {
	obj := fixtureObject(".text")
	flags, _, err := elf.ParseFlagTokens("readonly")
	require.NoError(t, err)

	prog := &SectionProgram{Rules: []SectionRule{
		{Kind: SectionRename, Name: ".text", NewName: ".newtext", Flags: flags, HasFlags: true},
	}}

	plan, err := PlanSections(obj, prog)
	require.NoError(t, err)

	var renamed *elf.Section
	for _, p := range plan.Planned {
		if p.Section.Name == ".newtext" {
			renamed = p.Section
		}
	}
	require.NotNil(t, renamed)
	assert.Zero(t, renamed.Flags&elf.SHF_WRITE)
}

func TestPlanSections_OnlyKeepDropsUnlisted(t *testing.T) {
	obj := fixtureObject(".text", ".data", ".comment")
	prog := &SectionProgram{OnlyKeep: []string{".text"}}

	plan, err := PlanSections(obj, prog)
	require.NoError(t, err)

	var names []string
	for _, p := range plan.Planned {
		names = append(names, p.Section.Name)
	}
	assert.Contains(t, names, ".text")
	assert.NotContains(t, names, ".data")
	assert.NotContains(t, names, ".comment")
}

func TestPlanSections_RemoveAndOnlyKeepConflictIsRejected(t *testing.T) {
	obj := fixtureObject(".text", ".data")
	prog := &SectionProgram{
		OnlyKeep: []string{".data"},
		Rules:    []SectionRule{{Kind: SectionRemove, Name: ".data"}},
	}

	_, err := PlanSections(obj, prog)
	require.Error(t, err)
}

func TestPlanSections_ReservedNamesAreSkippedFromGeneralLoop(t *testing.T) {
	obj := fixtureObject(".text", ".symtab", ".strtab", ".shstrtab")
	plan, err := PlanSections(obj, &SectionProgram{})
	require.NoError(t, err)

	var names []string
	for _, p := range plan.Planned {
		names = append(names, p.Section.Name)
	}
	assert.Contains(t, names, ".text")
	assert.NotContains(t, names, ".symtab")
	assert.NotContains(t, names, ".strtab")
	assert.NotContains(t, names, ".shstrtab")
}

func TestPlanSections_Additions(t *testing.T) {
	obj := fixtureObject(".text")
	prog := &SectionProgram{Additions: []AddedSection{{Name: ".note.custom", Data: []byte("hi")}}}

	plan, err := PlanSections(obj, prog)
	require.NoError(t, err)

	var added *PlannedSection
	for i := range plan.Planned {
		if plan.Planned[i].Section.Name == ".note.custom" {
			added = &plan.Planned[i]
		}
	}
	require.NotNil(t, added)
	assert.Equal(t, -1, added.InputIdx)
	assert.Equal(t, []byte("hi"), added.Section.Data)
}
