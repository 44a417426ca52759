// redex CLI - normalizes de Bruijn lambda terms
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/redex/heap"
	"github.com/chazu/redex/manifest"
	"github.com/chazu/redex/reduce"
	"github.com/chazu/redex/server"
	"github.com/chazu/redex/syntax"
	"github.com/chazu/redex/term"
	"github.com/chazu/redex/term/hash"
	"github.com/chazu/redex/wire"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitStepLimit = 2
)

var log = commonlog.GetLogger("redex.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	steps     int
	trace     bool
	hash      bool
	out       string
	configDir string
	serve     bool
	addr      string
	verbose   bool
	file      string
	load      string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("redex", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.steps, "steps", 0, "Maximum reduction steps (default from redex.toml)")
	fs.BoolVar(&opts.trace, "trace", false, "Print every intermediate term")
	fs.BoolVar(&opts.hash, "hash", false, "Print the content hash of the result")
	fs.StringVar(&opts.out, "o", "", "Write the result as a CBOR snapshot to this file")
	fs.StringVar(&opts.configDir, "config", "", "Directory containing redex.toml (default: search upward from cwd)")
	fs.BoolVar(&opts.serve, "serve", false, "Start the reduction server (Connect over HTTP)")
	fs.StringVar(&opts.addr, "addr", "", "Server address (used with -serve)")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	fs.StringVar(&opts.file, "f", "", "Read the term from a file")
	fs.StringVar(&opts.load, "load", "", "Read the term from a CBOR snapshot")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: redex [options] [expression]\n\n")
		fmt.Fprintf(stderr, "Normalizes a closed de Bruijn lambda term and prints the result.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  redex '((\\ 0) (\\ 0))'         # prints (\\ 0)\n")
		fmt.Fprintf(stderr, "  redex -f church.lam -trace    # show every step\n")
		fmt.Fprintf(stderr, "  redex -hash -o out.cbor < t.lam\n")
		fmt.Fprintf(stderr, "  redex -serve -addr :8080      # serve Reduce/Inspect\n")
		fmt.Fprintf(stderr, "\nExit status: 0 normal form, 1 error, 2 step limit reached.\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	m, err := loadManifest(opts.configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	configureLogging(m, opts.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.serve {
		return serve(ctx, m, opts.addr, stderr)
	}

	if opts.steps > 0 {
		m.Reduce.MaxSteps = opts.steps
	}

	var maxCells []heap.ArenaOption
	if m.Heap.MaxCells > 0 {
		maxCells = append(maxCells, heap.WithLimit(m.Heap.MaxCells))
	}
	arena := heap.NewArena[term.Node](maxCells...)
	store := term.NewStore(arena)

	// evaluate pairs every error with a non-zero code.
	code, err := evaluate(ctx, store, m, opts, fs.Args(), stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var f *heap.Fault
		if errors.As(err, &f) {
			// The arena is unreliable after a fault; skip the leak check.
			return exitError
		}
	}
	if live := arena.Live(); live != 0 {
		fmt.Fprintf(stderr, "Error: %d cells leaked\n", live)
		return exitError
	}
	return code
}

// loadManifest loads redex.toml from dir, or searches upward from the
// working directory when dir is empty. No manifest means defaults.
func loadManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

func configureLogging(m *manifest.Manifest, verbose bool) {
	verbosity := m.Log.Verbosity
	if verbose && verbosity < 2 {
		verbosity = 2
	}
	var path *string
	if p := m.LogPath(); p != "" {
		path = &p
	}
	commonlog.Configure(verbosity, path)
}

func serve(ctx context.Context, m *manifest.Manifest, addr string, stderr io.Writer) int {
	if addr == "" {
		addr = m.Server.Addr
	}
	srv := server.New(server.WithManifest(m))
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()
	if err := srv.ListenAndServe(addr); err != nil {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		srv.Stop()
		return exitError
	}
	return exitOK
}

// evaluate reads, normalizes and prints one term. Every term it builds is
// destroyed before it returns, unless a heap fault interrupts it.
func evaluate(
	ctx context.Context,
	s *term.Store,
	m *manifest.Manifest,
	opts options,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
) (code int, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*heap.Fault)
			if !ok {
				panic(r)
			}
			code, err = exitError, f
		}
	}()

	r, err := readTerm(s, m, opts, args, stdin)
	if err != nil {
		return exitError, err
	}

	var trace func(int, *term.Store, term.Ref)
	if opts.trace {
		trace = func(step int, s *term.Store, r term.Ref) {
			fmt.Fprintf(stdout, "%d: %s\n", step, s.String(r))
		}
	}
	res, err := reduce.Normalize(ctx, s, r, reduce.Options{
		MaxSteps: m.Reduce.MaxSteps,
		Trace:    trace,
	})
	defer s.Destroy(res.Term)

	code = exitOK
	switch {
	case errors.Is(err, reduce.ErrStepLimit):
		code = exitStepLimit
	case err != nil:
		return exitError, err
	}

	if err := s.Render(stdout, res.Term); err != nil {
		return exitError, err
	}
	fmt.Fprintln(stdout)
	if opts.hash {
		fmt.Fprintln(stdout, hash.Hex(s, res.Term))
	}
	if opts.out != "" {
		data, err := wire.Encode(s, res.Term)
		if err != nil {
			return exitError, err
		}
		if err := os.WriteFile(opts.out, data, 0o644); err != nil {
			return exitError, fmt.Errorf("cannot write snapshot: %w", err)
		}
	}

	if code == exitStepLimit {
		log.Warningf("step limit %d reached after %d steps", m.Reduce.MaxSteps, res.Steps)
		return code, fmt.Errorf("not in normal form after %d steps", res.Steps)
	}
	log.Infof("normal form after %d steps", res.Steps)
	return code, nil
}

// readTerm builds the input term from, in order of precedence: -load, -f,
// the expression argument, the manifest entry, or stdin.
func readTerm(s *term.Store, m *manifest.Manifest, opts options, args []string, stdin io.Reader) (term.Ref, error) {
	if len(args) > 1 {
		return term.Ref{}, fmt.Errorf("expected at most one expression, got %d", len(args))
	}
	sources := 0
	for _, set := range []bool{opts.load != "", opts.file != "", len(args) == 1} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return term.Ref{}, fmt.Errorf("-load, -f and an expression argument are mutually exclusive")
	}

	switch {
	case opts.load != "":
		data, err := os.ReadFile(opts.load)
		if err != nil {
			return term.Ref{}, fmt.Errorf("cannot read snapshot: %w", err)
		}
		return wire.Decode(s, data)
	case opts.file != "":
		return parseFile(s, opts.file)
	case len(args) == 1:
		return syntax.Parse(s, args[0])
	case m.EntryPath() != "":
		return parseFile(s, m.EntryPath())
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, stdin); err != nil {
		return term.Ref{}, fmt.Errorf("cannot read stdin: %w", err)
	}
	return syntax.Parse(s, sb.String())
}

func parseFile(s *term.Store, path string) (term.Ref, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return term.Ref{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	r, err := syntax.Parse(s, string(data))
	if err != nil {
		return term.Ref{}, fmt.Errorf("%s:%w", path, err)
	}
	return r, nil
}
