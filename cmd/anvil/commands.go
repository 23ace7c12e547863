package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/anvil"
	"github.com/deepnoodle-ai/anvil/diag"
	"github.com/deepnoodle-ai/anvil/object"
	"github.com/deepnoodle-ai/anvil/objfile"
)

func buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <file.asm>",
		Short: "Assemble a source file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			obj := assembleFile(args[0])

			out := viper.GetString("output")
			if out == "" {
				out = "a.out"
			}
			f, err := os.Create(out)
			if err != nil {
				fatal(err)
			}
			defer f.Close()

			switch viper.GetString("format") {
			case "bin":
				err = objfile.WriteBin(obj, f)
			case "obj":
				err = objfile.WriteObj(obj, f)
			default:
				err = fmt.Errorf("unknown output format: %s", viper.GetString("format"))
			}
			if err != nil {
				fatal(err)
			}
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output path (default a.out)")
	cmd.Flags().StringP("format", "f", "bin", "Output format (bin, obj)")
	viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	viper.BindPFlag("format", cmd.Flags().Lookup("format"))
	return cmd
}

func dumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file.asm>",
		Short: "Assemble a source file and print its sections and symbols",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			obj := assembleFile(args[0])

			for _, s := range obj.Sections() {
				data, err := objfile.EmitSection(s)
				if err != nil {
					fatal(err)
				}
				fmt.Printf("section %s (%d bytes)\n", s.Name(), len(data))
				for off := 0; off < len(data); off += 16 {
					end := off + 16
					if end > len(data) {
						end = len(data)
					}
					fmt.Printf("  %08x  % x\n", off, data[off:end])
				}
			}
			fmt.Println("symbols:")
			for _, sym := range obj.Symbols() {
				if !sym.IsDefined() {
					continue
				}
				if v, ok := sym.Constant(); ok {
					fmt.Printf("  %-20s = %d\n", sym.Name(), v.Int())
					continue
				}
				loc := sym.Location()
				fmt.Printf("  %-20s %s:0x%08x\n", sym.Name(), loc.Container().Name(), loc.Offset())
			}
		},
	}
}

// assembleFile assembles one source file, printing diagnostics and exiting
// on failure.
func assembleFile(path string) *object.Object {
	source, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}
	sink := diag.NewSink()
	obj, err := anvil.Assemble(string(source),
		anvil.WithFilename(path),
		anvil.WithSink(sink),
		anvil.WithLogger(newLogger()),
	)
	if err != nil {
		formatter := diag.NewFormatter(path, useColor())
		formatter.Print(os.Stderr, sink)
		os.Exit(1)
	}
	return obj
}
