package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ifabos/go-idlc/compiler"
	"github.com/ifabos/go-idlc/config"
	"github.com/ifabos/go-idlc/mapping"
	"github.com/ifabos/go-idlc/persist"
	"github.com/ifabos/go-idlc/typesys"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "idlgen [flags] file.idl...",
		Short: "IDL to Go type generator",
		Long: `idlgen compiles OMG IDL files into one target module. The module is saved as a
manifest that later runs can reference, and optionally as Go source.`,
		Example:       "  idlgen -m bank -o ./generated -I ./idl bank.idl accounts.idl",
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				pterm.Error.Println(err)
				return err
			}
			if err := run(cfg, args); err != nil {
				printError(err)
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "configuration file (default ./idlgen.{yaml,toml,json})")
	flags.StringP("module", "m", "", "name of the target module")
	flags.StringP("output-dir", "o", ".", "output directory of the manifest and the generated Go files")
	flags.StringP("package", "p", "", "Go package name of the generated files (default: module name)")
	flags.StringSliceP("include", "I", nil, "directories to search for included IDL files")
	flags.StringSliceP("define", "D", nil, "preprocessor definitions, NAME or NAME=value")
	flags.StringSlice("mapping", nil, "custom mapping files (.toml or .yaml)")
	flags.StringSliceP("reference", "r", nil, "manifests of modules whose types are not generated again")
	flags.Bool("legacy-octet", false, "accept negative octet constants")
	flags.Bool("emit-source", true, "write Go source next to the manifest")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	for key, flag := range map[string]string{
		"module_name":  "module",
		"output_dir":   "output-dir",
		"package":      "package",
		"include_dirs": "include",
		"defines":      "define",
		"mappings":     "mapping",
		"references":   "reference",
		"legacy_octet": "legacy-octet",
		"emit_source":  "emit-source",
		"log_level":    "log-level",
	} {
		bindFlag(v, key, cmd, flag)
	}
	return cmd
}

func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// run compiles the files in order into one module
func run(cfg *config.Config, files []string) error {
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}

	var inputErrs error
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			inputErrs = multierror.Append(inputErrs, fmt.Errorf("input file %s: %w", file, err))
		}
	}
	if inputErrs != nil {
		return inputErrs
	}

	mappings, err := mapping.Load(logger, cfg.Mappings...)
	if err != nil {
		return err
	}
	refs, err := persist.LoadManifests(logger, cfg.References...)
	if err != nil {
		return err
	}
	sources := make([]compiler.ReferenceSource, len(refs))
	for i, ref := range refs {
		sources[i] = ref
	}

	store := persist.NewStore(logger)
	writers := persist.Chain{store}
	var source *persist.SourceWriter
	if cfg.EmitSource {
		source = persist.NewSourceWriter(cfg.Package, logger)
		writers = append(writers, source)
	}

	session, err := compiler.NewSession(compiler.Options{
		ModuleName:     cfg.ModuleName,
		OutputLocation: cfg.OutputDir,
		Mappings:       mappings,
		References:     sources,
		Mode:           cfg.Mode(),
		Logger:         logger,
		Writer:         writers,
		IncludeDirs:    cfg.IncludeDirs,
		Defines:        cfg.Defines,
	})
	if err != nil {
		return err
	}

	for _, file := range files {
		pterm.Info.Printfln("compiling %s", file)
		if err := session.CompileFile(file); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	module, err := session.Finalize()
	if err != nil {
		return err
	}

	printSummary(session, module, store, source)
	return nil
}

func printSummary(session *compiler.Session, module *typesys.Module, store *persist.Store, source *persist.SourceWriter) {
	for _, d := range session.Diagnostics().All() {
		if d.Kind == compiler.DiagImplementationExpected {
			continue
		}
		pterm.Warning.Printfln("%s: %s", d.Symbol, d.Message)
	}

	if impls := session.ImplementationsExpected(); len(impls) > 0 {
		pterm.Warning.Println("the following value types need an implementation:")
		items := make([]pterm.BulletListItem, len(impls))
		for i, name := range impls {
			items[i] = pterm.BulletListItem{Level: 0, Text: name}
		}
		_ = pterm.DefaultBulletList.WithItems(items).Render()
	}

	pterm.Success.Printfln("module %s: %d types written to %s", module.Name, module.Len(), store.Path())
	if source != nil {
		for _, file := range source.Files() {
			pterm.Success.Printfln("generated %s", file)
		}
	}
}

// printError prints every error of an aggregate, and the rule of an invalid IDL error
func printError(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			pterm.Error.Println(e)
		}
		return
	}
	pterm.Error.Println(err)
	var invalid *compiler.InvalidIDLError
	if errors.As(err, &invalid) && invalid.Pos.Line > 0 {
		pterm.Info.Printfln("at %s", invalid.Pos)
	}
}
