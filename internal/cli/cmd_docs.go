package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/andreyvit/kvdoc"
)

func (a *app) getCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("get", flag.ContinueOnError),
		Usage: "get <collection> <id>",
		Short: "Print a document",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 2, 2); err != nil {
				return err
			}
			doc, err := a.db.GetDocument(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			o.Println(doc.Value().String())
			return nil
		},
	}
}

func (a *app) putCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("put", flag.ContinueOnError),
		Usage: "put <collection> <id> <json>",
		Short: "Create or replace a document",
		Long: `Create or replace a document. The value must be a JSON object; pass "-" to
read it from standard input. Field rules from the "collections" config section
are checked before writing.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 3, -1); err != nil {
				return err
			}
			fields, err := parseObjectArg(o, args[2:])
			if err != nil {
				return err
			}
			return a.db.SaveDocument(ctx, &kvdoc.Document{Collection: args[0], ID: args[1], Fields: fields})
		},
	}
}

func (a *app) updateCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("update", flag.ContinueOnError),
		Usage: "update <collection> <id> <json>",
		Short: "Merge fields into an existing document",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 3, -1); err != nil {
				return err
			}
			patch, err := parseObjectArg(o, args[2:])
			if err != nil {
				return err
			}
			doc, err := a.db.UpdateDocument(ctx, args[0], args[1], patch)
			if err != nil {
				return err
			}
			o.Println(doc.Value().String())
			return nil
		},
	}
}

func (a *app) delCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("del", flag.ContinueOnError),
		Usage: "del <collection> <id>...",
		Short: "Delete documents",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 2, -1); err != nil {
				return err
			}
			for _, id := range args[1:] {
				if err := a.db.DeleteDocument(ctx, args[0], id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) keysCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("keys", flag.ContinueOnError),
		Usage: "keys [pattern]",
		Short: "List raw keys matching a glob pattern",
		Long:  `List raw keys matching a glob pattern ("*" by default), sorted.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 0, 1); err != nil {
				return err
			}
			pattern := "*"
			if len(args) > 0 {
				pattern = args[0]
			}
			keys, err := a.db.Keys(ctx, pattern)
			if err != nil {
				return err
			}
			for _, key := range keys {
				o.Println(key)
			}
			return nil
		},
	}
}

// parseObjectArg joins args back with spaces, so unquoted JSON split by the
// shell still parses.
func parseObjectArg(o *IO, args []string) (*kvdoc.Object, error) {
	raw := strings.Join(args, " ")
	if raw == "-" {
		data, err := io.ReadAll(o.In())
		if err != nil {
			return nil, err
		}
		raw = string(data)
	}
	val, err := kvdoc.ParseJSON([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	obj, ok := val.AsObject()
	if !ok {
		return nil, fmt.Errorf("document must be a JSON object, got %v", val.Kind())
	}
	return obj, nil
}
