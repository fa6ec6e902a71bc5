// Command tclcore is a small exerciser for the tclcore runtime core:
// it drives the encoding-conversion and compression-channel
// subsystems from the command line so they can be poked at without
// writing Go.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-tcl/tclcore"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: tclcore <convert|compress|list-encodings> [flags]")
	}

	cmd := os.Args[1]
	os.Args = os.Args[1:]

	switch cmd {
	case "convert":
		runConvert()
	case "compress":
		runCompress()
	case "list-encodings":
		runListEncodings()
	default:
		log.Fatalf("unknown subcommand %q", cmd)
	}
}

func runListEncodings() {
	fs := flag.NewFlagSet("list-encodings", flag.ExitOnError)
	searchPath := fs.String("search-path", "", "colon-separated directories to search for encoding descriptor files")
	fs.Parse(os.Args[1:])

	if *searchPath != "" {
		tclcore.SetEncodingSearchPath(splitPath(*searchPath))
	}
	for _, name := range tclcore.GetEncodingNames() {
		fmt.Println(name)
	}
}

func runConvert() {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	from := fs.String("from", "utf-8", "source encoding name")
	to := fs.String("to", "utf-8", "destination encoding name")
	inPath := fs.String("in", "", "input file (default stdin)")
	outPath := fs.String("out", "", "output file (default stdout)")
	strict := fs.Bool("strict", false, "reject unrepresentable bytes/characters")
	fs.Parse(os.Args[1:])

	src, err := readInput(*inPath)
	if err != nil {
		log.Fatalf("convert: %v", err)
	}

	fromEnc, err := tclcore.GetEncoding(*from)
	if err != nil {
		log.Fatalf("convert: %v", err)
	}
	defer tclcore.ReleaseEncoding(fromEnc)

	toEnc, err := tclcore.GetEncoding(*to)
	if err != nil {
		log.Fatalf("convert: %v", err)
	}
	defer tclcore.ReleaseEncoding(toEnc)

	flags := tclcore.ConvertFlags{Start: true, End: true, Strict: *strict}

	var toState tclcore.ConvertState
	canonRes, canon := fromEnc.ToCanonical(&toState, src, flags, make([]byte, 0, len(src)+8))
	if canonRes.Status != tclcore.ConvertOK {
		log.Fatalf("convert: %s -> canonical: status %v at byte %d", *from, canonRes.Status, canonRes.FailedPos)
	}

	var fromState tclcore.ConvertState
	extRes, ext := toEnc.FromCanonical(&fromState, canon, flags, make([]byte, 0, len(canon)+8))
	if extRes.Status != tclcore.ConvertOK {
		log.Fatalf("convert: canonical -> %s: status %v at byte %d", *to, extRes.Status, extRes.FailedPos)
	}

	if err := writeOutput(*outPath, ext); err != nil {
		log.Fatalf("convert: %v", err)
	}
}

func runCompress() {
	fs := flag.NewFlagSet("compress", flag.ExitOnError)
	decompress := fs.Bool("d", false, "decompress instead of compress")
	format := fs.String("format", "gzip", "gzip|zlib|raw|auto")
	inPath := fs.String("in", "", "input file (default stdin)")
	outPath := fs.String("out", "", "output file (default stdout)")
	level := fs.Int("level", -1, "compression level (-1 for default)")
	fs.Parse(os.Args[1:])

	fmtKind, err := parseFormat(*format)
	if err != nil {
		log.Fatalf("compress: %v", err)
	}

	in, err := openInput(*inPath)
	if err != nil {
		log.Fatalf("compress: %v", err)
	}
	if *inPath != "" {
		defer in.Close()
	}

	out, err := openOutput(*outPath)
	if err != nil {
		log.Fatalf("compress: %v", err)
	}
	if *outPath != "" {
		defer out.Close()
	}

	opts := tclcore.CompressOptions{Level: *level}

	if *decompress {
		ch, err := tclcore.PushTransform(in, tclcore.ModeDecompress, fmtKind, opts)
		if err != nil {
			log.Fatalf("compress: %v", err)
		}
		if _, err := io.Copy(out, ch); err != nil {
			log.Fatalf("compress: %v", err)
		}
		return
	}

	ch, err := tclcore.PushTransform(out, tclcore.ModeCompress, fmtKind, opts)
	if err != nil {
		log.Fatalf("compress: %v", err)
	}
	if _, err := io.Copy(ch, in); err != nil {
		log.Fatalf("compress: %v", err)
	}
	if err := ch.Flush(tclcore.FlushFinish); err != nil {
		log.Fatalf("compress: %v", err)
	}
}

func parseFormat(s string) (tclcore.CompressFormat, error) {
	switch s {
	case "gzip":
		return tclcore.FormatGzip, nil
	case "zlib":
		return tclcore.FormatZlib, nil
	case "raw":
		return tclcore.FormatRaw, nil
	case "auto":
		return tclcore.FormatAuto, nil
	default:
		return 0, fmt.Errorf("unknown format %q", s)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func openInput(path string) (*os.File, error) {
	if path == "" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

func openOutput(path string) (*os.File, error) {
	if path == "" {
		return os.Stdout, nil
	}
	return os.Create(path)
}

func splitPath(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
