// mojen validates schema descriptors, prints their cascade plans and
// generates the cascade code.
//
//	mojen validate ./schema
//	mojen plan -op delete ./schema
//	mojen gen -target ./cascade -package example.com/app/cascade ./schema
//	mojen snapshot ./schema ./schema.msgpack
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
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/syssam/mojen"
	"github.com/syssam/mojen/compiler/gen"
	"github.com/syssam/mojen/compiler/gen/cascade"
	"github.com/syssam/mojen/compiler/load"
)

const usage = `usage: mojen <command> [flags] <schema>

commands:
  validate   build the schema graph and report all errors
  plan       print the cascade plans of the enabled operations
  gen        write the cascade code of the enabled operations
  snapshot   write a msgpack snapshot of the schema descriptors
`

// errInvalid is returned when the schema has errors that were reported.
var errInvalid = errors.New("schema is invalid")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errInvalid) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "mojen: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}
	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet("mojen "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		verbose  = fs.Bool("v", false, "verbose logging")
		config   = fs.String("config", "", "path of a yaml config file")
		target   = fs.String("target", "", "output directory of generated files")
		pkg      = fs.String("package", "", "import path of the generated package")
		features = fs.String("features", "", "comma separated features to enable")
		disable  = fs.String("disable", "", "comma separated default features to disable")
		opName   = fs.String("op", "", "print the plan of a single operation")
		watch    = fs.Bool("watch", false, "regenerate when the schema changes")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := newLogger(*verbose, stderr)
	defer func() { _ = log.Sync() }()

	switch cmd {
	case "snapshot":
		if fs.NArg() != 2 {
			return fmt.Errorf("snapshot needs a schema and an output path")
		}
		schemas, err := load.Load(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := load.WriteSnapshot(fs.Arg(1), schemas); err != nil {
			return err
		}
		log.Info("snapshot written", zap.String("path", fs.Arg(1)), zap.Int("types", len(schemas)))
		return nil
	case "validate", "plan", "gen":
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%s needs a schema path", cmd)
	}
	schema := fs.Arg(0)

	opts := []gen.Option{gen.WithLogger(log)}
	if *target != "" {
		opts = append(opts, gen.WithTarget(*target))
	}
	if *pkg != "" {
		opts = append(opts, gen.WithPackage(*pkg))
	}
	on, err := featureList(*features)
	if err != nil {
		return err
	}
	off, err := featureList(*disable)
	if err != nil {
		return err
	}
	opts = append(opts, gen.WithFeatures(on...), gen.WithoutFeatures(off...))
	var cfg *gen.Config
	if *config != "" {
		cfg, err = gen.LoadConfigFile(*config, opts...)
	} else {
		cfg, err = gen.NewConfig(opts...)
	}
	if err != nil {
		return err
	}

	switch cmd {
	case "validate":
		g, err := buildGraph(schema, cfg, stderr)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d types ok\n", len(g.Types))
		return nil
	case "plan":
		g, err := buildGraph(schema, cfg, stderr)
		if err != nil {
			return err
		}
		return printPlans(ctx, stdout, g, *opName)
	default:
		generate := func() error {
			g, err := buildGraph(schema, cfg, stderr)
			if err != nil {
				return err
			}
			return writeFiles(ctx, stdout, g)
		}
		if err := generate(); err != nil && !*watch {
			return err
		}
		if !*watch {
			return nil
		}
		return watchSchema(ctx, schema, log, generate)
	}
}

func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zapcore.WarnLevel
	encoder := zap.NewProductionEncoderConfig()
	if verbose {
		level = zapcore.DebugLevel
		encoder = zap.NewDevelopmentEncoderConfig()
	}
	encoder.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.AddSync(w), level)
	return zap.New(core)
}

func featureList(s string) ([]gen.Feature, error) {
	var list []gen.Feature
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		f, ok := gen.FeatureByName(name)
		if !ok {
			return nil, gen.NewConfigError("Features", name, "unknown feature")
		}
		list = append(list, f)
	}
	return list, nil
}

// buildGraph loads and builds the schema, printing every error.
func buildGraph(path string, cfg *gen.Config, stderr io.Writer) (*gen.Graph, error) {
	g, err := load.LoadGraph(path, cfg)
	if err == nil {
		return g, nil
	}
	if g == nil {
		return nil, err
	}
	errs := gen.Errors(err)
	for _, e := range errs {
		fmt.Fprintln(stderr, e)
	}
	fmt.Fprintf(stderr, "%d errors\n", len(errs))
	return nil, errInvalid
}

func printPlans(ctx context.Context, w io.Writer, g *gen.Graph, opName string) error {
	var (
		plans []*cascade.Plan
		err   error
	)
	if opName == "" {
		plans, err = cascade.CompileAll(ctx, g)
	} else {
		op, perr := mojen.ParseOp(opName)
		if perr != nil {
			return perr
		}
		sel, _ := cascade.SelectorFor(op)
		var p *cascade.Plan
		if p, err = cascade.Compile(ctx, g, sel); err == nil {
			plans = []*cascade.Plan{p}
		}
	}
	if err != nil {
		return err
	}
	for _, p := range plans {
		fmt.Fprintf(w, "%s (%s)\n", p.Op, p.Method)
		for _, tp := range p.Types {
			fmt.Fprintf(w, "  %s\n", tp.Type.Name)
			for _, s := range tp.Steps {
				fmt.Fprintf(w, "    %s\n", describe(s))
			}
		}
	}
	return nil
}

func describe(s *cascade.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", s.Kind, s.Name())
	switch s.Kind {
	case cascade.StepLookup:
		fmt.Fprintf(&b, " by %s", s.ForeignKey().Name)
	case cascade.StepQuery:
		fmt.Fprintf(&b, " where %s", s.BackForeignKey().Name)
	case cascade.StepSoft:
		conds := make([]string, len(s.Conditions))
		for i, c := range s.Conditions {
			conds[i] = c.ChildPath + " = " + c.ParentProp
		}
		fmt.Fprintf(&b, " where %s", strings.Join(conds, " and "))
	}
	if s.Optional {
		b.WriteString(" (optional)")
	}
	return b.String()
}

func writeFiles(ctx context.Context, w io.Writer, g *gen.Graph) error {
	files, err := cascade.Files(ctx, g)
	if err != nil {
		return err
	}
	wr, err := gen.NewWriter(g.Config)
	if err != nil {
		return err
	}
	if err := wr.Write(ctx, files...); err != nil {
		return err
	}
	m := wr.Metrics()
	fmt.Fprintf(w, "%d files, %d bytes\n", m.FilesGenerated, m.TotalBytes)
	return nil
}

// watchSchema calls fn after changes to descriptor files under path until
// ctx is done. Bursts of events are coalesced.
func watchSchema(ctx context.Context, path string, log *zap.Logger, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	log.Info("watching schema", zap.String("path", path))

	const settle = 100 * time.Millisecond
	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, ok := load.FormatOf(ev.Name); !ok {
				continue
			}
			log.Debug("schema changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			timer.Reset(settle)
		case <-timer.C:
			if err := fn(); err != nil {
				log.Error("regenerate", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch", zap.Error(err))
		}
	}
}
