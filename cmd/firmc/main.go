// Command firmc drives the compiler backend core over a JSON-encoded
// function graph: GVN-PRE, chordal register allocation, and IA-32
// emission, in that order (spec §5). It is a thin driver — there is no
// frontend and no linker (spec §1's explicit scope: "no parsing, no
// linking") — replacing the teacher's hand-rolled os.Args switch in
// cmd/typthon/main.go with github.com/spf13/cobra subcommands and
// github.com/spf13/pflag-backed flags, the pack's dominant CLI stack.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/firmgo/firmgo/internal/config"
	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/irjson"
	"github.com/firmgo/firmgo/internal/pipeline"
)

const version = "0.1.0"

func main() {
	diagnostics.InitDev()
	diagnostics.LogCompilerStart(os.Args)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "firmc",
		Short: "firmc compiles a JSON-encoded SSA graph to IA-32 assembly",
	}
	root.AddCommand(newEmitCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the firmc version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("firmc version %s\n", version)
			return nil
		},
	}
}

func newEmitCmd() *cobra.Command {
	var (
		binary     bool
		out        string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "emit <ir.json>",
		Short: "run GVN-PRE, allocation, and IA-32 emission over a JSON graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			cfg := config.Default()
			if configPath != "" {
				var err error
				cfg, err = config.Load(configPath)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
			}
			cfg.Emit.Binary = binary

			classes := pipeline.NewClasses(cfg)
			g, frameSetup, err := irjson.Load(args[0], classes)
			if err != nil {
				diagnostics.LogCompilerComplete(false, time.Since(start).String())
				return fmt.Errorf("loading %s: %w", args[0], err)
			}

			res, err := pipeline.Run(g, cfg, classes, frameSetup)
			if err != nil {
				diagnostics.LogCompilerComplete(false, time.Since(start).String())
				return fmt.Errorf("compiling %s: %w", g.Name, err)
			}

			diagnostics.LogCompilerComplete(true, time.Since(start).String())

			if out == "" {
				fmt.Println(res.Text)
				return nil
			}
			return os.WriteFile(out, []byte(res.Text), 0o644)
		},
	}

	var flags *pflag.FlagSet = cmd.Flags()
	flags.BoolVar(&binary, "binary", false, "emit ModR/M-encoded directives instead of AT&T textual assembly")
	flags.StringVar(&out, "out", "", "write output to this file instead of stdout")
	flags.StringVar(&configPath, "config", "", "TOML config overriding register classes, GVN-PRE caps, and emit knobs")
	flags.SortFlags = false

	return cmd
}
