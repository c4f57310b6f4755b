package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scribgen/scribgen/pkg/scribgen"
)

// fileConfig mirrors the run settings for the optional YAML configuration
// file. Flags given on the command line take precedence.
type fileConfig struct {
	Template     string `yaml:"template"`
	Data         string `yaml:"data"`
	OutDir       string `yaml:"outdir"`
	OutName      string `yaml:"outname"`
	Format       string `yaml:"format"`
	KeepSLA      bool   `yaml:"keep_sla"`
	Separator    string `yaml:"separator"`
	Single       bool   `yaml:"single"`
	From         string `yaml:"from"`
	To           string `yaml:"to"`
	SaveSettings bool   `yaml:"save_settings"`
	LogLevel     string `yaml:"log_level"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "scribgen:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("scribgen", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "", "YAML configuration file")
		template    = fs.String("template", "", "template SLA file (required)")
		data        = fs.String("data", "", "data source file, CSV or XLSX")
		outDir      = fs.String("outdir", "", "output directory")
		outName     = fs.String("outname", "", "output name template, may contain %VAR_field% markers")
		format      = fs.String("format", scribgen.FormatSLA, "output format: Scribus or PDF")
		keepSLA     = fs.Bool("keep-sla", false, "keep intermediate SLA files after PDF export")
		separator   = fs.String("separator", ",", "data source field separator")
		single      = fs.Bool("single", false, "merge all records into one consolidated document")
		from        = fs.String("from", "", "first data row to process (1-based, inclusive)")
		to          = fs.String("to", "", "last data row to process (1-based, inclusive)")
		save        = fs.Bool("save-settings", false, "store these settings in the template")
		load        = fs.Bool("load-settings", false, "start from settings stored in the template")
		scribusPath = fs.String("scribus", "", "host application binary used for PDF export")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings := scribgen.DefaultSettings()

	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return err
		}
		var cfg fileConfig
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("config file %s: %w", *configPath, err)
		}
		applyFileConfig(settings, &cfg)
	}

	if *template != "" {
		settings.TemplatePath = *template
	}
	if settings.TemplatePath == "" {
		fs.Usage()
		return errors.New("a template file is required")
	}

	if *load {
		doc, err := scribgen.ParseSLAFile(settings.TemplatePath)
		if err != nil {
			return err
		}
		if blob, ok := scribgen.LoadSettingsBlob(doc); ok {
			if err := settings.UnmarshalBlob(blob); err != nil {
				scribgen.GetLogger().Warn("%v", err)
			}
		}
	}

	// Explicit flags win over the config file and stored settings.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			settings.DataPath = *data
		case "outdir":
			settings.OutputDir = *outDir
		case "outname":
			settings.OutputName = *outName
		case "format":
			settings.OutputFormat = *format
		case "keep-sla":
			settings.KeepNative = *keepSLA
		case "separator":
			settings.Separator = *separator
		case "single":
			settings.SingleOutput = *single
		case "from":
			settings.FirstRow = *from
		case "to":
			settings.LastRow = *to
		case "save-settings":
			settings.SaveSettings = *save
		}
	})

	if settings.DataPath == "" {
		fs.Usage()
		return errors.New("a data source file is required")
	}

	generator := scribgen.New(settings)
	if *scribusPath != "" {
		generator.SetRenderer(&scribgen.ScribusRenderer{Command: *scribusPath})
	}

	result, err := generator.Run()
	if err != nil {
		return err
	}

	if result.Expanded > 0 {
		fmt.Printf("expanded %d repeating elements into %s\n", result.Expanded, result.OutputFiles[0])
		return nil
	}
	fmt.Printf("processed %d records, wrote %d file(s)\n", result.Records, len(result.OutputFiles)+len(result.Exported))
	return nil
}

func applyFileConfig(settings *scribgen.Settings, cfg *fileConfig) {
	if cfg.Template != "" {
		settings.TemplatePath = cfg.Template
	}
	if cfg.Data != "" {
		settings.DataPath = cfg.Data
	}
	if cfg.OutDir != "" {
		settings.OutputDir = cfg.OutDir
	}
	if cfg.OutName != "" {
		settings.OutputName = cfg.OutName
	}
	if cfg.Format != "" {
		settings.OutputFormat = cfg.Format
	}
	if cfg.Separator != "" {
		settings.Separator = cfg.Separator
	}
	settings.KeepNative = settings.KeepNative || cfg.KeepSLA
	settings.SingleOutput = settings.SingleOutput || cfg.Single
	settings.SaveSettings = settings.SaveSettings || cfg.SaveSettings
	if cfg.From != "" {
		settings.FirstRow = cfg.From
	}
	if cfg.To != "" {
		settings.LastRow = cfg.To
	}
	if cfg.LogLevel != "" {
		engineCfg := scribgen.GetGlobalConfig()
		engineCfg.LogLevel = cfg.LogLevel
		scribgen.SetGlobalConfig(engineCfg)
	}
}
