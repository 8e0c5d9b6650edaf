// Package cli implements the kvdoc command-line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andreyvit/kvdoc"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	cfg     Config
	sources ConfigSources
	workDir string
	env     map[string]string
	logger  *zap.Logger
	db      *kvdoc.DB

	newLineReader func(a *app) (lineReader, error)
	inShell       bool
}

// Run is the main entry point. Returns exit code.
func Run(ctx context.Context, in io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	return run(ctx, NewIO(in, out, errOut), args, env, newLinerReader)
}

func run(ctx context.Context, o *IO, args []string, env map[string]string, newLineReader func(a *app) (lineReader, error)) int {
	a := &app{env: env, newLineReader: newLineReader}

	fs, gf := globalFlagSet()
	if len(args) > 0 {
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		o.ErrPrintln(usage(a, fs))
		return 1
	}
	rest := fs.Args()
	if gf.help || len(rest) == 0 {
		o.Printf("%s", usage(a, fs))
		return 0
	}

	cmd := a.findCommand(rest[0])
	if cmd == nil {
		o.ErrPrintln("error: unknown command:", rest[0])
		o.ErrPrintln()
		o.ErrPrintln(usage(a, fs))
		return 1
	}

	workDir := gf.workDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			o.ErrPrintln("error: cannot get working directory:", err)
			return 1
		}
		workDir = wd
	}

	overridden := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		overridden[f.Name] = true
	})
	cfg, sources, err := LoadConfig(workDir, gf.configPath, gf.overrides, overridden, env)
	if err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}
	a.cfg, a.sources, a.workDir = cfg, sources, workDir
	a.logger = newLogger(o.errOut, cfg.Verbose)
	defer a.logger.Sync()

	if !cmd.NoDB {
		db, err := openDB(ctx, cfg, a.logger)
		if err != nil {
			o.ErrPrintln("error:", err)
			return 1
		}
		defer db.Close()
		a.db = db
	}

	return cmd.Run(ctx, o, rest[1:])
}

type globalFlags struct {
	workDir    string
	configPath string
	help       bool
	overrides  Config
}

func globalFlagSet() (*flag.FlagSet, *globalFlags) {
	gf := &globalFlags{}
	fs := flag.NewFlagSet("kvdoc", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&gf.workDir, "cwd", "C", "", "Run as if started in `dir`")
	fs.StringVarP(&gf.configPath, "config", "c", "", "Use specified config `file`")
	fs.StringVar(&gf.overrides.Store, "store", "", "Store backend: "+strings.Join(storeKinds, ", "))
	fs.StringVar(&gf.overrides.Path, "path", "", "Data `file` of the file, bolt and sqlite stores")
	fs.StringVar(&gf.overrides.RedisURL, "redis-url", "", "Redis `url` of the redis store")
	fs.StringVar(&gf.overrides.Encoding, "encoding", "", "Value encoding: json or msgpack")
	fs.IntVar(&gf.overrides.FetchConcurrency, "concurrency", 0, "Parallel fetches during scans")
	fs.BoolVarP(&gf.overrides.Verbose, "verbose", "v", false, "Log every store call")
	fs.BoolVarP(&gf.help, "help", "h", false, "Show help")
	return fs, gf
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func openStore(ctx context.Context, cfg Config) (kvdoc.Store, error) {
	var store kvdoc.Store
	var err error
	switch cfg.Store {
	case "mem":
		store = kvdoc.NewMemStore()
	case "file":
		store, err = kvdoc.NewFileStore(cfg.Path)
	case "bolt":
		store, err = kvdoc.OpenBoltStore(cfg.Path, kvdoc.BoltOptions{})
	case "redis":
		store, err = kvdoc.OpenRedisStore(ctx, cfg.RedisURL)
	case "sqlite":
		store, err = kvdoc.OpenSQLiteStore(ctx, cfg.Path)
	default:
		err = fmt.Errorf("%w %q", errUnknownStore, cfg.Store)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openDB(ctx context.Context, cfg Config, logger *zap.Logger) (*kvdoc.DB, error) {
	enc, err := kvdoc.ParseEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened store", zap.String("store", cfg.Store), zap.String("path", cfg.Path), zap.Stringer("encoding", enc))
	return kvdoc.Open(store, kvdoc.Options{
		Encoding:         enc,
		Logger:           logger,
		Verbose:          cfg.Verbose,
		Schema:           cfg.schema(),
		FetchConcurrency: cfg.FetchConcurrency,
	}), nil
}

// commands returns fresh command instances, so flag state never leaks
// between shell lines.
func (a *app) commands() []*Command {
	return []*Command{
		a.getCmd(),
		a.putCmd(),
		a.updateCmd(),
		a.delCmd(),
		a.keysCmd(),
		a.findCmd(),
		a.countCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.statsCmd(),
		a.dumpCmd(),
		a.migrationsCmd(),
		a.shellCmd(),
		a.printConfigCmd(),
	}
}

func (a *app) findCommand(name string) *Command {
	for _, c := range a.commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func usage(a *app, fs *flag.FlagSet) string {
	var buf strings.Builder
	buf.WriteString(`kvdoc - document store on top of key-value backends

Usage: kvdoc [flags] <command> [args]

Global flags:
`)
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
	buf.WriteString("\nCommands:\n")
	for _, c := range a.commands() {
		buf.WriteString(c.HelpLine())
		buf.WriteByte('\n')
	}
	return buf.String()
}
