package cli

import (
	"context"
	"strconv"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/andreyvit/kvdoc"
)

type queryFlags struct {
	where []string
	sort  string
	skip  int
	limit int
}

func addQueryFlags(fs *flag.FlagSet, paging bool) *queryFlags {
	qf := &queryFlags{limit: kvdoc.NoLimit}
	fs.StringArrayVarP(&qf.where, "where", "w", nil, "Filter as `field:op:value` (repeatable, ANDed)")
	if paging {
		fs.StringVarP(&qf.sort, "sort", "s", "", "Sort by `field`, prefix with - for descending")
		fs.IntVar(&qf.skip, "skip", 0, "Skip the first `n` results")
		fs.IntVarP(&qf.limit, "limit", "n", kvdoc.NoLimit, "Return at most `n` results")
	}
	return qf
}

func (qf *queryFlags) spec(collection string) (kvdoc.QuerySpec, error) {
	spec := kvdoc.NewQuerySpec(collection)
	for _, expr := range qf.where {
		f, err := kvdoc.ParseFilter(expr)
		if err != nil {
			return spec, err
		}
		spec.Filters = append(spec.Filters, f)
	}
	if qf.sort != "" {
		s, err := kvdoc.ParseSort(qf.sort)
		if err != nil {
			return spec, err
		}
		spec.Sort = &s
	}
	spec.Skip, spec.Limit = qf.skip, qf.limit
	return spec, spec.Validate()
}

func (a *app) findCmd() *Command {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	qf := addQueryFlags(fs, true)
	return &Command{
		Flags: fs,
		Usage: "find <collection> [flags]",
		Short: "Query documents",
		Long: `Query documents of a collection. Each result is printed as "key json".

Operators: eq, ne, gt, gte, lt, lte, contains, in, nin. Values are parsed as
JSON when possible, otherwise taken as strings; in/nin also accept a
comma-separated list. Example:

  kvdoc find user -w status:eq:active -w age:gte:18 --sort -age --limit 10`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 1, 1); err != nil {
				return err
			}
			spec, err := qf.spec(args[0])
			if err != nil {
				return err
			}
			a.logger.Debug("find", zap.String("query", spec.String()))
			docs, err := a.db.Find(ctx, spec)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				o.Println(doc.String())
			}
			return nil
		},
	}
}

func (a *app) countCmd() *Command {
	fs := flag.NewFlagSet("count", flag.ContinueOnError)
	qf := addQueryFlags(fs, false)
	return &Command{
		Flags: fs,
		Usage: "count <collection> [flags]",
		Short: "Count matching documents",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 1, 1); err != nil {
				return err
			}
			spec, err := qf.spec(args[0])
			if err != nil {
				return err
			}
			n, err := a.db.Count(ctx, spec)
			if err != nil {
				return err
			}
			o.Println(strconv.Itoa(n))
			return nil
		},
	}
}
