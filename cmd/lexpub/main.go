// Command lexpub renders a lexical database into a dictionary publication.
// It provides commands for rendering, watching a database, checking a
// configuration, and verifying bundles.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/lexpub/core/sqlite"
	"github.com/FocuswithJustin/lexpub/internal/app"
	"github.com/FocuswithJustin/lexpub/internal/export"
	"github.com/FocuswithJustin/lexpub/internal/logging"
	"github.com/FocuswithJustin/lexpub/internal/settings"
)

const version = "0.1.0"

// CLI defines the command-line interface for lexpub.
var CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"Run settings file (YAML)" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error"`
	LogFormat string `name:"log-format" help:"Log format: text, json"`

	Render   RenderCmd   `cmd:"" help:"Render the publication once"`
	Watch    WatchCmd    `cmd:"" help:"Render, then re-render whenever the database changes"`
	Check    CheckCmd    `cmd:"" help:"Check the configuration tree against the database"`
	Verify   VerifyCmd   `cmd:"" help:"Verify a publication bundle"`
	Sample   SampleCmd   `cmd:"" help:"Write a sample lexical database"`
	Settings SettingsCmd `cmd:"" help:"Print the effective run settings"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// RunFlags override values of the settings file.
type RunFlags struct {
	Database      string `name:"db" short:"d" help:"Lexical database file" type:"path"`
	Publication   string `name:"publication" short:"p" help:"Publication name"`
	Backend       string `name:"backend" short:"b" help:"Output backend: xhtml, json, odt"`
	Output        string `name:"out" short:"o" help:"Output file" type:"path"`
	Configuration string `name:"tree" help:"Configuration tree (YAML)" type:"path"`
	Styles        string `name:"styles" help:"Style sheet (YAML)" type:"path"`
	Rules         string `name:"rules" help:"Collation rules file" type:"path"`
	Workers       int    `name:"workers" short:"w" help:"Render workers (0 = one per CPU)" default:"-1"`
	Bundle        bool   `name:"bundle" help:"Also write a .tar.xz bundle with a manifest"`
	Serialize     bool   `name:"serialize" help:"Serialize database reads"`
	Listen        string `name:"listen" help:"Progress server address, e.g. 127.0.0.1:8090"`
}

// RenderCmd renders the publication once.
type RenderCmd struct {
	RunFlags `embed:""`
}

func (c *RenderCmd) Run() error {
	s, err := loadSettings(c.RunFlags)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sv := startServices(ctx, s)
	defer sv.Stop()

	a, err := app.Open(ctx, s, sv.Options()...)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Render(ctx)
	if rep != nil {
		printReport(os.Stdout, rep)
	}
	return err
}

// WatchCmd re-renders when the database changes.
type WatchCmd struct {
	RunFlags `embed:""`
	Debounce time.Duration `name:"debounce" help:"Quiet period before a change is picked up" default:"1s"`
}

func (c *WatchCmd) Run() error {
	s, err := loadSettings(c.RunFlags)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sv := startServices(ctx, s)
	defer sv.Stop()

	a, err := app.Open(ctx, s, sv.Options()...)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", s.Database)
	return a.Watch(ctx, c.Debounce, func(rep *app.Report, err error) {
		if rep != nil {
			printReport(os.Stdout, rep)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		}
	})
}

// CheckCmd reports configuration nodes that cannot be applied.
type CheckCmd struct {
	RunFlags `embed:""`
}

func (c *CheckCmd) Run() error {
	s, err := loadSettings(c.RunFlags)
	if err != nil {
		return err
	}
	a, err := app.Open(context.Background(), s)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Check()
	if err != nil {
		return err
	}
	printCheck(os.Stdout, rep)
	if len(rep.Problems) > 0 {
		return fmt.Errorf("%d configuration problem(s)", len(rep.Problems))
	}
	return nil
}

// VerifyCmd checks a bundle against its manifest.
type VerifyCmd struct {
	Path string `arg:"" help:"Bundle to verify" type:"existingfile"`
}

func (c *VerifyCmd) Run() error {
	m, err := export.Verify(c.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Bundle OK: batch %s, backend %s, %d entries\n", m.BatchID, m.Backend, m.Entries)
	for _, f := range m.Files {
		fmt.Printf("  %-24s %10d  %s\n", f.Name, f.Size, f.BLAKE3)
	}
	return nil
}

// SampleCmd writes the sample database.
type SampleCmd struct {
	Out string `arg:"" help:"Database file to write" type:"path"`
}

func (c *SampleCmd) Run() error {
	if err := app.WriteSample(context.Background(), c.Out); err != nil {
		return err
	}
	fmt.Printf("Wrote sample lexicon to %s (publication %q, writing system %s)\n",
		c.Out, app.SamplePublication, app.SampleWritingSystem)
	return nil
}

// SettingsCmd prints the settings a run would use.
type SettingsCmd struct {
	RunFlags `embed:""`
}

func (c *SettingsCmd) Run() error {
	s, err := loadSettings(c.RunFlags)
	if err != nil {
		return err
	}
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("lexpub version %s (sqlite driver %s)\n", version, sqlite.DriverType())
	return nil
}

// loadSettings reads the settings file, if any, and applies flag
// overrides. Logging is initialized from the result.
func loadSettings(f RunFlags) (*settings.Settings, error) {
	s := &settings.Settings{}
	if CLI.Config != "" {
		loaded, err := settings.Load(CLI.Config)
		if err != nil {
			return nil, err
		}
		s = loaded
	}
	applyFlags(s, f)
	s.ApplyDefaults()

	level, format := s.Log.Level, s.Log.Format
	if CLI.LogLevel != "" {
		level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		format = CLI.LogFormat
	}
	logging.InitLogger(logging.ParseLevel(level), logging.ParseFormat(format))

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func applyFlags(s *settings.Settings, f RunFlags) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	if f.Backend != "" && f.Backend != s.Backend {
		// A default output name follows the backend.
		if s.Output == "dictionary"+settings.Extension(s.Backend) {
			s.Output = ""
		}
		s.Backend = f.Backend
	}
	set(&s.Database, f.Database)
	set(&s.Publication, f.Publication)
	set(&s.Output, f.Output)
	set(&s.Configuration, f.Configuration)
	set(&s.Styles, f.Styles)
	set(&s.Collation.RulesFile, f.Rules)
	set(&s.Progress.Listen, f.Listen)
	if f.Workers >= 0 {
		s.Workers = f.Workers
	}
	if f.Bundle {
		s.Bundle = true
	}
	if f.Serialize {
		s.SerializeReads = true
	}
}

func printReport(w io.Writer, rep *app.Report) {
	status := "done"
	if rep.Cancelled {
		status = "cancelled"
	}
	fmt.Fprintf(w, "Render %s: %d entries, %d letter headers, %d failed in %s (batch %s)\n",
		status, rep.Entries, rep.Headers, rep.Failed, rep.Duration.Round(time.Millisecond), rep.BatchID)
	for _, out := range rep.Outputs {
		fmt.Fprintf(w, "  wrote %s\n", out)
	}
	if rep.Bundle != "" {
		fmt.Fprintf(w, "  bundle %s\n", rep.Bundle)
	}
}

func printCheck(w io.Writer, rep *app.CheckReport) {
	pub := rep.Publication
	if pub == "" {
		pub = "(all entries)"
	}
	fmt.Fprintf(w, "Publication: %s\n", pub)
	fmt.Fprintf(w, "  main entries:          %d\n", rep.Entries)
	fmt.Fprintf(w, "  excluded objects:      %d\n", rep.Excluded)
	fmt.Fprintf(w, "  hidden as headwords:   %d\n", rep.ExcludedAsHeadword)
	if len(rep.Problems) == 0 {
		fmt.Fprintln(w, "Configuration OK")
		return
	}
	fmt.Fprintf(w, "Configuration problems (%d):\n", len(rep.Problems))
	for _, p := range rep.Problems {
		fmt.Fprintf(w, "  %s: field %q not found on %s\n", p.Path, p.Field, p.Class)
	}
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lexpub"),
		kong.Description("Configured dictionary publishing from a lexical database"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
