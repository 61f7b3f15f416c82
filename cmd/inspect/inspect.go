// Package inspect implements an interactive ELF/DWARF object browser: a
// tcell/tview tree view by default, or a readline-driven command prompt
// under --batch for scripted/non-terminal use.
package inspect

import (
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/embtoolkit/elftoolchain-go/internal/diag"
	"github.com/embtoolkit/elftoolchain-go/internal/dwarf"
	"github.com/embtoolkit/elftoolchain-go/internal/elf"
	"github.com/embtoolkit/elftoolchain-go/internal/persona"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
)

var batch bool

// Cmd is the `inspect` subcommand.
var Cmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Browse an ELF object's sections, symbols, and DWARF debug info",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().BoolVar(&batch, "batch", false, "drive the inspector from a readline prompt instead of the full-screen view")
}

func run(cmd *cobra.Command, args []string) error {
	obj, err := persona.OpenInput(args[0])
	if err != nil {
		return err
	}

	ctx, err := dwarf.NewDebugContext(obj)
	if err != nil {
		diag.Warnf("inspect: %s: debug info unavailable: %v", args[0], err)
		ctx = nil
	}

	if batch {
		return runBatch(obj, ctx)
	}
	return runTUI(obj, ctx)
}

// runBatch drives the inspector from a readline prompt: "sections",
// "symbols", "cu", "die <cu-index>", "quit".
func runBatch(obj *elf.Object, ctx *dwarf.DebugContext) error {
	rl, err := readline.New("inspect> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "sections":
			diag.DumpSections(os.Stdout, obj.Sections())
		case "symbols":
			printSymbols(obj)
		case "cu":
			printCUs(ctx)
		case "die":
			if len(fields) < 2 {
				fmt.Println("usage: die <cu-index>")
				continue
			}
			printDIETree(ctx, fields[1])
		case "help":
			fmt.Println("commands: sections, symbols, cu, die <cu-index>, quit")
		default:
			fmt.Printf("unknown command %q (try help)\n", fields[0])
		}
	}
}

func printSymbols(obj *elf.Object) {
	symtab := obj.SectionByName(".symtab")
	strtab := obj.SectionByName(".strtab")
	if symtab == nil || strtab == nil {
		fmt.Println("no .symtab present")
		return
	}
	order := byteOrder(obj)
	is64 := obj.Class() == elf.ELFCLASS64
	syms, err := elf.DecodeSymbolTable(symtab.Data, strtab.Data, order, is64)
	if err != nil {
		diag.Errorf("inspect: decoding .symtab: %v", err)
		return
	}
	diag.DumpSymbols(os.Stdout, syms)
}

func printCUs(ctx *dwarf.DebugContext) {
	if ctx == nil {
		fmt.Println("no debug info")
		return
	}
	for i, cu := range ctx.CUs {
		name := "?"
		if cu.Root != nil {
			if v, ok := cu.Root.Val(dwarf.AttrName); ok {
				name = v.Str
			}
		}
		fmt.Printf("  [%d] offset=%#x version=%d name=%s\n", i, cu.Offset, cu.Version, name)
	}
}

func printDIETree(ctx *dwarf.DebugContext, indexArg string) {
	if ctx == nil {
		fmt.Println("no debug info")
		return
	}
	var idx int
	if _, err := fmt.Sscanf(indexArg, "%d", &idx); err != nil || idx < 0 || idx >= len(ctx.CUs) {
		fmt.Printf("no such compilation unit %q\n", indexArg)
		return
	}
	for _, d := range dwarf.Preorder(ctx.CUs[idx].Root) {
		fmt.Printf("  %#08x %s\n", d.Offset, tagName(d.Tag))
	}
}

func byteOrder(obj *elf.Object) elf.Data {
	return obj.Endianness()
}

// runTUI presents a tree of sections/symbols/compilation units using
// tview, with a detail pane showing the selected node's attributes.
func runTUI(obj *elf.Object, ctx *dwarf.DebugContext) error {
	app := tview.NewApplication()

	root := tview.NewTreeNode(obj.Header.Type.String()).SetColor(tcell.ColorYellow)
	tree := tview.NewTreeView().SetRoot(root).SetCurrentNode(root)

	detail := tview.NewTextView().SetDynamicColors(true)
	detail.SetBorder(true).SetTitle("Detail")
	tree.SetBorder(true).SetTitle("Object")

	sectionsNode := tview.NewTreeNode("Sections").SetSelectable(true)
	for _, s := range obj.Sections() {
		n := tview.NewTreeNode(fmt.Sprintf("%s (%#x bytes)", s.Name, s.Size)).SetReference(s)
		sectionsNode.AddChild(n)
	}
	root.AddChild(sectionsNode)

	if symtab := obj.SectionByName(".symtab"); symtab != nil {
		if strtab := obj.SectionByName(".strtab"); strtab != nil {
			order := byteOrder(obj)
			is64 := obj.Class() == elf.ELFCLASS64
			if syms, err := elf.DecodeSymbolTable(symtab.Data, strtab.Data, order, is64); err == nil {
				symsNode := tview.NewTreeNode("Symbols").SetSelectable(true)
				for i := range syms {
					sym := syms[i]
					n := tview.NewTreeNode(sym.Name).SetReference(&sym)
					symsNode.AddChild(n)
				}
				root.AddChild(symsNode)
			}
		}
	}

	if ctx != nil && len(ctx.CUs) > 0 {
		cusNode := tview.NewTreeNode("Compilation Units").SetSelectable(true)
		for i, cu := range ctx.CUs {
			cuNode := tview.NewTreeNode(fmt.Sprintf("CU %d (offset %#x)", i, cu.Offset))
			addDIENodes(cuNode, cu.Root)
			cusNode.AddChild(cuNode)
		}
		root.AddChild(cusNode)
	}

	tree.SetSelectedFunc(func(node *tview.TreeNode) {
		detail.SetText(describe(node.GetReference()))
	})

	flex := tview.NewFlex().
		AddItem(tree, 0, 1, true).
		AddItem(detail, 0, 1, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Key() == tcell.KeyEscape {
			app.Stop()
			return nil
		}
		return event
	})

	return app.SetRoot(flex, true).Run()
}

func addDIENodes(parent *tview.TreeNode, die *dwarf.DIE) {
	if die == nil {
		return
	}
	node := tview.NewTreeNode(tagName(die.Tag)).SetReference(die)
	for _, child := range die.Children {
		addDIENodes(node, child)
	}
	parent.AddChild(node)
}

func describe(ref interface{}) string {
	switch v := ref.(type) {
	case *elf.Section:
		return fmt.Sprintf("name: %s\ntype: %#x\nflags: %#x\naddr: %#x\nsize: %#x",
			v.Name, uint32(v.Type), uint64(v.Flags), v.Addr, v.Size)
	case *elf.Symbol:
		return fmt.Sprintf("name: %s\nvalue: %#x\nsize: %#x\nbinding: %d\ntype: %d",
			v.Name, v.Value, v.Size, v.Binding, v.Type)
	case *dwarf.DIE:
		var b strings.Builder
		fmt.Fprintf(&b, "tag: %s\noffset: %#x\n", tagName(v.Tag), v.Offset)
		for _, a := range v.Attrs {
			fmt.Fprintf(&b, "  attr %#x: %v\n", a.Attr, a.Value)
		}
		return b.String()
	default:
		return ""
	}
}

var tagNames = map[dwarf.Tag]string{
	dwarf.TagCompileUnit:   "DW_TAG_compile_unit",
	dwarf.TagSubprogram:    "DW_TAG_subprogram",
	dwarf.TagVariable:      "DW_TAG_variable",
	dwarf.TagBaseType:      "DW_TAG_base_type",
	dwarf.TagPointerType:   "DW_TAG_pointer_type",
	dwarf.TagStructureType: "DW_TAG_structure_type",
	dwarf.TagMember:        "DW_TAG_member",
	dwarf.TagArrayType:     "DW_TAG_array_type",
}

func tagName(t dwarf.Tag) string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return fmt.Sprintf("%#x", uint32(t))
}
