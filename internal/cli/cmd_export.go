package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/andreyvit/kvdoc"
)

func (a *app) exportCmd() *Command {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	qf := addQueryFlags(fs, true)
	return &Command{
		Flags: fs,
		Usage: "export <collection> <file> [flags]",
		Short: "Write matching documents to a JSON file",
		Long: `Write the documents matching the query to a JSON file as an object mapping
ids to documents. The file is replaced atomically. Accepts the same flags as
find.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 2, 2); err != nil {
				return err
			}
			spec, err := qf.spec(args[0])
			if err != nil {
				return err
			}
			docs, err := a.db.Find(ctx, spec)
			if err != nil {
				return err
			}

			fields := make([]kvdoc.Field, len(docs))
			for i, doc := range docs {
				fields[i] = kvdoc.Field{Name: doc.ID, Value: doc.Value()}
			}
			raw, err := kvdoc.ObjectValue(kvdoc.NewObject(fields...)).MarshalJSON()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, raw, "", "  "); err != nil {
				return err
			}
			buf.WriteByte('\n')

			path := resolvePath(a.workDir, args[1])
			if err := atomic.WriteFile(path, &buf); err != nil {
				return err
			}
			o.Printf("exported %d documents to %s\n", len(docs), args[1])
			return nil
		},
	}
}

func (a *app) importCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("import", flag.ContinueOnError),
		Usage: "import <collection> <file>",
		Short: "Save documents from a JSON file",
		Long: `Save every document of a JSON file in the format written by export,
replacing existing documents with the same ids. Stops at the first document
that fails validation; documents before it stay saved.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, 2, 2); err != nil {
				return err
			}
			data, err := os.ReadFile(resolvePath(a.workDir, args[1]))
			if err != nil {
				return err
			}
			val, err := kvdoc.ParseJSON(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			all, ok := val.AsObject()
			if !ok {
				return fmt.Errorf("%s: expected an object mapping ids to documents, got %v", args[1], val.Kind())
			}

			for i, f := range all.Fields() {
				fields, ok := f.Value.AsObject()
				if !ok {
					return fmt.Errorf("%s: document %q is a %v, not an object", args[1], f.Name, f.Value.Kind())
				}
				doc := &kvdoc.Document{Collection: args[0], ID: f.Name, Fields: fields}
				if err := a.db.SaveDocument(ctx, doc); err != nil {
					return fmt.Errorf("%s (after %d saved): %w", doc.Key(), i, err)
				}
			}
			o.Printf("imported %d documents into %s\n", all.Len(), args[0])
			return nil
		},
	}
}
