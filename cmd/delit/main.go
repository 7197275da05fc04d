package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/clrtools/delit"
)

func main() {
	app := cli.NewApp()
	app.Name = "delit"
	app.Usage = "recover and inline string literals hidden behind a generated decoder type"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "input",
			Usage: "path to the module to process",
		},
		cli.StringFlag{
			Name:  "output",
			Usage: "path to write the rewritten module to (defaults to overwriting --input)",
		},
		cli.BoolFlag{
			Name:  "dry-run",
			Usage: "run every phase but do not write the result",
		},
		cli.BoolFlag{
			Name:  "scan",
			Usage: "stop after recovering accessor text; do not rewrite call sites",
		},
		cli.BoolFlag{
			Name:  "no-backup",
			Usage: "skip writing a .backup copy of --input before overwriting it",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log at debug level",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	input := c.String("input")
	if input == "" {
		return cli.NewExitError("delit: --input is required", 1)
	}
	output := c.String("output")
	if output == "" {
		output = input
	}

	delit.ConfigureLogging(c.Bool("verbose"))

	cfg := delit.Config{
		InputPath:  input,
		OutputPath: output,
		DryRun:     c.Bool("dry-run"),
		ScanOnly:   c.Bool("scan"),
		Verbose:    c.Bool("verbose"),
	}

	if !cfg.DryRun && !cfg.ScanOnly && !c.Bool("no-backup") && output == input {
		if err := backupFile(input); err != nil {
			return cli.NewExitError(fmt.Sprintf("delit: backup %s: %v", input, err), 1)
		}
	}

	report, err := delit.Run(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	printReport(report)
	return nil
}

// backupFile copies path to path+".backup" before delit.Run overwrites it.
// The copy is left in place regardless of whether the subsequent write
// succeeds, so a failed run never costs the caller their original module.
func backupFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".backup")
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func printReport(r *delit.Report) {
	if !r.DecoderFound {
		fmt.Println(color.YellowString("no decoder type found; nothing to do"))
		return
	}

	fmt.Printf("decoder type:     %s\n", color.CyanString(r.DecoderTypeName))
	fmt.Printf("payload:          %d bytes (fingerprint %016x)\n", r.PayloadLength, r.PayloadFingerprint)

	recovered := fmt.Sprintf("%d", r.AccessorsRecovered)
	if r.AccessorsSkipped > 0 {
		recovered = color.YellowString("%d recovered, %d skipped", r.AccessorsRecovered, r.AccessorsSkipped)
	} else {
		recovered = color.GreenString("%d recovered", r.AccessorsRecovered)
	}
	fmt.Printf("accessors:        %s\n", recovered)

	if r.UsedLookupTable && r.TableRecordsSkipped > 0 {
		fmt.Println(color.YellowString("lookup table:     %d malformed record(s) skipped", r.TableRecordsSkipped))
	}

	fmt.Printf("call sites:       %s\n", color.GreenString("%d replaced across %d method(s)", r.CallsReplaced, r.MethodsPatched))

	if r.ResidualCalls > 0 {
		fmt.Println(color.YellowString("residual calls:  %d (accessors that could not be recovered)", r.ResidualCalls))
	}

	if r.Written {
		fmt.Println(color.GreenString("module written"))
	}
}
