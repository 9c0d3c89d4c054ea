// Command grfbuild is a thin CLI wrapper around package grf: it exists to
// exercise the Builder from the shell, not as a full patch-management
// tool. Subcommands operate on one archive at a time and perform no
// concurrent mutation of it; where multiple independent sources are read
// (e.g. a directory of files for "add"), reads are fanned out with
// errgroup before the single-threaded, sequential Builder calls.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/ArturllVale/Kafra-Patcher/grf"
)

func main() {
	log.SetFlags(0)
	args := os.Args[1:]
	verb := "list"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	var err error
	switch verb {
	case "add":
		err = add(args)
	case "remove":
		err = remove(args)
	case "import-raw":
		err = importRaw(args)
	case "finish":
		err = finish(args)
	case "list":
		err = list(args)
	default:
		err = fmt.Errorf("unknown verb %q (want add, remove, import-raw, finish, list)", verb)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// verbose reports whether progress lines should be printed: only when
// stdout is an attached terminal, so piping grfbuild's output doesn't
// interleave chatter with data.
func verbose() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

func add(args []string) error {
	fset := flag.NewFlagSet("add", flag.ExitOnError)
	var (
		archive = fset.String("archive", "", "path to the GRF archive to open or create")
		major   = fset.Uint("major", 2, "archive version major (1 or 2)")
		minor   = fset.Uint("minor", 0, "archive version minor")
		root    = fset.String("root", "", "directory whose files are added, named relative to root")
	)
	fset.Parse(args)
	if *archive == "" || *root == "" {
		return fmt.Errorf("syntax: grfbuild add -archive=<path> -root=<directory>")
	}

	var paths []string
	if err := filepath.Walk(*root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(*root, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	}); err != nil {
		return err
	}

	contents := make([][]byte, len(paths))
	var eg errgroup.Group
	for i, rel := range paths {
		i, rel := i, rel
		eg.Go(func() error {
			b, err := os.ReadFile(filepath.Join(*root, rel))
			if err != nil {
				return err
			}
			contents[i] = b
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	b, err := openOrCreate(*archive, uint32(*major), uint32(*minor))
	if err != nil {
		return err
	}
	for i, rel := range paths {
		if verbose() {
			log.Printf("adding %s", rel)
		}
		if err := b.AddFile(filepath.ToSlash(rel), bytes.NewReader(contents[i])); err != nil {
			return err
		}
	}
	return b.Finish()
}

func remove(args []string) error {
	fset := flag.NewFlagSet("remove", flag.ExitOnError)
	var archive = fset.String("archive", "", "path to the GRF archive to modify")
	fset.Parse(args)
	paths := fset.Args()
	if *archive == "" || len(paths) == 0 {
		return fmt.Errorf("syntax: grfbuild remove -archive=<path> <entry> [<entry>...]")
	}

	b, err := grf.Open(*archive)
	if err != nil {
		return err
	}
	for _, p := range paths {
		removed, err := b.RemoveFile(p)
		if err != nil {
			return err
		}
		if verbose() && removed {
			log.Printf("removed %s", p)
		}
	}
	return b.Finish()
}

func importRaw(args []string) error {
	fset := flag.NewFlagSet("import-raw", flag.ExitOnError)
	var (
		archive = fset.String("archive", "", "path to the destination GRF archive")
		from    = fset.String("from", "", "path to the source GRF archive")
	)
	fset.Parse(args)
	paths := fset.Args()
	if *archive == "" || *from == "" || len(paths) == 0 {
		return fmt.Errorf("syntax: grfbuild import-raw -archive=<dest> -from=<src> <entry> [<entry>...]")
	}

	src, err := os.Open(*from)
	if err != nil {
		return err
	}
	defer src.Close()
	srcReader, err := grf.OpenReader(src)
	if err != nil {
		return err
	}

	b, err := grf.Open(*archive)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if verbose() {
			log.Printf("importing %s", p)
		}
		if err := b.ImportRawFromGRF(srcReader, p); err != nil {
			return err
		}
	}
	return b.Finish()
}

func finish(args []string) error {
	fset := flag.NewFlagSet("finish", flag.ExitOnError)
	var archive = fset.String("archive", "", "path to the GRF archive to finalize")
	fset.Parse(args)
	if *archive == "" {
		return fmt.Errorf("syntax: grfbuild finish -archive=<path>")
	}
	b, err := grf.Open(*archive)
	if err != nil {
		return err
	}
	return b.Finish()
}

func list(args []string) error {
	fset := flag.NewFlagSet("list", flag.ExitOnError)
	var archive = fset.String("archive", "", "path to the GRF archive to inspect")
	fset.Parse(args)
	if *archive == "" {
		return fmt.Errorf("syntax: grfbuild list -archive=<path>")
	}

	f, err := os.Open(*archive)
	if err != nil {
		return err
	}
	defer f.Close()
	rd, err := grf.OpenReader(f)
	if err != nil {
		return err
	}
	for path, e := range rd.Entries() {
		fmt.Printf("%s\t%d\t%d\n", path, e.Size, e.SizeCompressed)
	}
	return nil
}

func openOrCreate(path string, major, minor uint32) (*grf.Builder, error) {
	if _, err := os.Stat(path); err == nil {
		return grf.Open(path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return grf.Create(f, major, minor)
}
