package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

// lineReader is the part of *liner.State the shell needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type linerReader struct {
	*liner.State
	historyPath string
	logger      *zap.Logger
}

func newLinerReader(a *app) (lineReader, error) {
	r := &linerReader{State: liner.NewLiner(), logger: a.logger}
	r.SetCtrlCAborts(true)
	r.SetCompleter(a.complete)

	if home := a.env["HOME"]; home != "" {
		r.historyPath = filepath.Join(home, ".kvdoc_history")
		if f, err := os.Open(r.historyPath); err == nil {
			_, _ = r.ReadHistory(f)
			f.Close()
		}
	}
	return r, nil
}

func (r *linerReader) Close() error {
	if r.historyPath != "" {
		if f, err := os.Create(r.historyPath); err == nil {
			_, _ = r.WriteHistory(f)
			f.Close()
		} else {
			r.logger.Warn("cannot save shell history", zap.Error(err))
		}
	}
	return r.State.Close()
}

func (a *app) complete(line string) []string {
	if strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for _, c := range a.commands() {
		if name := c.Name(); name != "shell" && strings.HasPrefix(name, line) {
			out = append(out, name+" ")
		}
	}
	return out
}

func (a *app) shellCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Run commands interactively",
		Long: `Read commands interactively against one open store. Arguments are split on
whitespace. Type "help" for the command list, "exit" to leave.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if a.inShell {
				return errors.New("already in a shell")
			}
			if err := wantArgs(args, 0, 0); err != nil {
				return err
			}
			return a.runShell(ctx, o)
		},
	}
}

func (a *app) runShell(ctx context.Context, o *IO) error {
	r, err := a.newLineReader(a)
	if err != nil {
		return err
	}
	defer r.Close()
	a.inShell = true
	defer func() { a.inShell = false }()

	o.Printf("kvdoc shell (%s store). Type 'help' for commands.\n", a.cfg.Store)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := r.Prompt("kvdoc> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				o.Println("bye")
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.AppendHistory(line)

		parts := strings.Fields(line)
		switch parts[0] {
		case "exit", "quit":
			o.Println("bye")
			return nil
		case "help", "?":
			for _, c := range a.commands() {
				if c.Name() != "shell" {
					o.Println(c.HelpLine())
				}
			}
			continue
		}

		cmd := a.findCommand(parts[0])
		if cmd == nil {
			o.ErrPrintln("error: unknown command:", parts[0])
			continue
		}
		// failures are reported by cmd.Run and do not end the session
		cmd.Run(ctx, o, parts[1:])
	}
}
