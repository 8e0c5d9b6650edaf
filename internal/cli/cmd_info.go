package cli

import (
	"context"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/andreyvit/kvdoc"
)

func (a *app) statsCmd() *Command {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	counters := fs.Bool("counters", false, "Also print the store operations issued")
	return &Command{
		Flags: fs,
		Usage: "stats [collection...]",
		Short: "Print per-collection statistics",
		Long: `Print key, document and malformed value counts for the given collections, or
for every collection in the store.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			colls := args
			if len(colls) == 0 {
				var err error
				colls, err = a.db.Collections(ctx)
				if err != nil {
					return err
				}
			}
			for _, coll := range colls {
				s, err := a.db.CollectionStats(ctx, coll)
				if err != nil {
					return err
				}
				o.Printf("%s: keys=%d documents=%d malformed=%d size=%d\n", coll, s.Keys, s.Documents, s.Malformed, s.DataSize)
			}
			if *counters {
				c := a.db.Counters()
				o.Printf("ops: reads=%d writes=%d deletes=%d scans=%d\n", c.Reads, c.Writes, c.Deletes, c.Scans)
			}
			return nil
		},
	}
}

func (a *app) dumpCmd() *Command {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	rowsOnly := fs.Bool("rows", false, "Print rows only, without headers and stats")
	return &Command{
		Flags: fs,
		Usage: "dump [flags]",
		Short: "Print the whole store in readable form",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 0, 0); err != nil {
				return err
			}
			f := kvdoc.DumpAll
			if *rowsOnly {
				f = kvdoc.DumpRows
			}
			s, err := a.db.Dump(ctx, f)
			if err != nil {
				return err
			}
			o.Printf("%s", s)
			return nil
		},
	}
}

func (a *app) migrationsCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("migrations", flag.ContinueOnError),
		Usage: "migrations",
		Short: "List applied migrations, newest first",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 0, 0); err != nil {
				return err
			}
			recs, err := a.db.MigrationHistory(ctx)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				o.Println("no migrations applied")
				return nil
			}
			for _, rec := range recs {
				o.Printf("%s\t%s\t%s\t%s\n", rec.ID, rec.Name, rec.AppliedAt.Format(time.RFC3339), rec.Checksum)
			}
			return nil
		},
	}
}

func (a *app) printConfigCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		NoDB:  true,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			formatted, err := FormatConfig(a.cfg)
			if err != nil {
				return err
			}
			o.Println(formatted)
			o.Println()
			o.Println("# Sources:")
			if a.sources.Global != "" {
				o.Println("#   global:", a.sources.Global)
			}
			if a.sources.Project != "" {
				o.Println("#   project:", a.sources.Project)
			}
			if a.sources.Global == "" && a.sources.Project == "" {
				o.Println("#   (using defaults only)")
			}
			return nil
		},
	}
}
