// Layoutcheck validates compiler-emitted class layout manifests and
// prints the resolved descriptor tables.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/tliron/commonlog"

	"github.com/chazu/fieldrt/attr"
	"github.com/chazu/fieldrt/layout"

	_ "github.com/tliron/commonlog/simple"
)

var (
	verbose = flag.Bool("v", false, "log registration and validation detail")
	quiet   = flag.Bool("q", false, "suppress the descriptor table, report errors only")
	version = flag.Bool("version", false, "print version and exit")
)

const versionStr = "0.3.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Layoutcheck - class layout manifest validator\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  layoutcheck [options] manifest.toml...\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *version {
		fmt.Printf("layoutcheck version %s\n", versionStr)
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	for _, path := range flag.Args() {
		m, err := layout.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		l, err := m.Build(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			os.Exit(1)
		}
		if err := layout.Register(l); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			os.Exit(1)
		}
		if !*quiet {
			printLayout(l)
		}
	}
}

func printLayout(l *attr.Layout) {
	fmt.Printf("%s (%d field bytes)\n", l.ClassName(), l.Size())
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tREPR\tOFFSET\tDEL\tALWAYS\tBITMAP")
	for _, d := range l.Descriptors() {
		bitmap := "-"
		if d.HasBitmap {
			bitmap = fmt.Sprintf("word %d mask %#x", d.BitmapOffset, d.BitmapMask)
		}
		fmt.Fprintf(w, "  %s\t%s\t%d\t%v\t%v\t%s\n",
			d.Name, d.Repr, d.Offset, d.Deletable, d.AlwaysDefined, bitmap)
	}
	w.Flush()
}
