// Package pipeline assembles a project build file and a template into merged
// contract source, stage by stage.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"labz/internal/blocks"
	"labz/internal/generator"
	"labz/internal/project"
	"labz/internal/solidity"
)

// Build drives one end-to-end assembly run.
type Build struct {
	ProjectFile string
	CatalogPath string
	registry    *blocks.Registry
}

// buildFile is the on-disk shape of a project build description. Template
// selects merge mode; without one the contract is generated from scratch
// using Name, Inherits, and the declared functions.
type buildFile struct {
	Template  string          `yaml:"template"`
	Name      string          `yaml:"name"`
	Inherits  []string        `yaml:"inherits"`
	Output    string          `yaml:"output"`
	Functions []functionEntry `yaml:"functions"`
	Blocks    []blockEntry    `yaml:"blocks"`
}

type functionEntry struct {
	Name       string       `yaml:"name"`
	Visibility string       `yaml:"visibility"`
	Mutability string       `yaml:"mutability"`
	Returns    string       `yaml:"returns"`
	Params     []paramEntry `yaml:"params"`
}

type paramEntry struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type blockEntry struct {
	Zone     string            `yaml:"zone"`
	Function string            `yaml:"function"`
	Block    string            `yaml:"block"`
	Config   map[string]string `yaml:"config"`
}

func NewBuild(projectFile string) *Build {
	return &Build{ProjectFile: projectFile}
}

// Run executes the staged build: load, parse, apply, merge, write.
func (b *Build) Run() error {
	start := time.Now()

	bf, err := b.loadStage()
	if err != nil {
		return err
	}

	tmpl, st, err := b.parseStage(bf)
	if err != nil {
		return err
	}

	registry, err := b.registryStage()
	if err != nil {
		return err
	}

	st, applied, err := b.applyStage(registry, st, bf.Blocks)
	if err != nil {
		return err
	}

	res, err := b.mergeStage(registry, tmpl, st)
	if err != nil {
		return err
	}

	if err := b.writeStage(bf, res); err != nil {
		return err
	}

	fmt.Printf("✅ Build finished in %v. Blocks applied=%d, skipped=%d\n", time.Since(start), applied, len(res.Skipped))
	return nil
}

func (b *Build) loadStage() (*buildFile, error) {
	data, err := os.ReadFile(b.ProjectFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var bf buildFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}
	if bf.Template == "" && bf.Name == "" {
		return nil, fmt.Errorf("project file %s names neither a template nor a contract name", b.ProjectFile)
	}
	if bf.Output == "" {
		bf.Output = strings.TrimSuffix(b.ProjectFile, filepath.Ext(b.ProjectFile)) + ".sol"
	}

	mode := "merge"
	if bf.Template == "" {
		mode = "from scratch"
	}
	fmt.Printf("📝 Loaded project %s (%s): %d block(s)\n", b.ProjectFile, mode, len(bf.Blocks))
	return &bf, nil
}

func (b *Build) parseStage(bf *buildFile) (generator.LoadedTemplate, project.State, error) {
	if bf.Template == "" {
		st := project.New(bf.Name)
		st.Inherits = append([]string(nil), bf.Inherits...)
		for _, fe := range bf.Functions {
			fn := solidity.Function{
				Name:            fe.Name,
				Visibility:      fe.Visibility,
				StateMutability: fe.Mutability,
				ReturnType:      fe.Returns,
			}
			if fn.Visibility == "" {
				fn.Visibility = "external"
			}
			for _, p := range fe.Params {
				fn.Parameters = append(fn.Parameters, solidity.Param{Name: p.Name, Type: p.Type})
			}
			st.Functions = append(st.Functions, project.Function{Function: fn, Body: []project.Block{}})
		}
		fmt.Printf("📊 New contract %s: %d declared function(s)\n", bf.Name, len(st.Functions))
		return generator.LoadedTemplate{}, st, nil
	}

	source, err := os.ReadFile(bf.Template)
	if err != nil {
		return generator.LoadedTemplate{}, project.State{}, fmt.Errorf("failed to read template: %w", err)
	}

	tmpl := generator.LoadTemplate(string(source))
	st := project.FromContract(tmpl.Contract, strings.Split(tmpl.Source, "\n"))

	fmt.Printf("📊 Parsed template %s: %d function(s), %d import(s)\n",
		tmpl.Contract.Name, len(tmpl.Contract.Functions), len(tmpl.Contract.Imports))
	return tmpl, st, nil
}

func (b *Build) registryStage() (*blocks.Registry, error) {
	registry := blocks.NewRegistry()
	if b.CatalogPath != "" {
		if err := registry.LoadCatalog(b.CatalogPath); err != nil {
			return nil, fmt.Errorf("failed to load block catalog: %w", err)
		}
	}
	b.registry = registry
	return registry, nil
}

// applyStage turns build-file entries into state transitions, checking each
// block's availability rule before applying it. Unavailable blocks are
// reported and skipped rather than failing the build.
func (b *Build) applyStage(registry *blocks.Registry, st project.State, entries []blockEntry) (project.State, int, error) {
	applied := 0
	for _, e := range entries {
		if e.Zone == "" && e.Function != "" {
			e.Zone = string(project.ZoneFunction)
		}

		def, ok := registry.Get(e.Block)
		if !ok {
			return st, applied, fmt.Errorf("unknown block %q in project file", e.Block)
		}

		var selected *project.Function
		if e.Function != "" {
			for i := range st.Functions {
				if st.Functions[i].Name == e.Function {
					selected = &st.Functions[i]
					break
				}
			}
			if selected == nil {
				return st, applied, fmt.Errorf("%w: %s", project.ErrFunctionNotFound, e.Function)
			}
		}

		if !blocks.Available(def, blocks.Context{State: &st, Selected: selected}) {
			fmt.Printf("⚠️  Skipping %s: not available in the current state\n", e.Block)
			continue
		}

		next, err := project.Apply(st, project.AddBlock{
			Zone:       project.Zone(e.Zone),
			FunctionID: e.Function,
			BlockID:    e.Block,
			Config:     e.Config,
		})
		if err != nil {
			return st, applied, fmt.Errorf("failed to apply block %s: %w", e.Block, err)
		}
		st = next
		applied++
	}
	return st, applied, nil
}

func (b *Build) mergeStage(registry *blocks.Registry, tmpl generator.LoadedTemplate, st project.State) (generator.Result, error) {
	gen := generator.New(registry)

	var res generator.Result
	var err error
	if tmpl.Source == "" {
		res, err = gen.Generate(st)
	} else {
		res, err = gen.Merge(tmpl, st)
	}
	if err != nil {
		return generator.Result{}, fmt.Errorf("generation failed: %w", err)
	}

	if !res.Verified {
		fmt.Println("⚠️  Some blocks could not be anchored and were appended near the contract end. Review the output.")
	}
	for _, id := range res.Skipped {
		fmt.Printf("⚠️  Omitted %s: illegal placement for its zone\n", id)
	}
	return res, nil
}

func (b *Build) writeStage(bf *buildFile, res generator.Result) error {
	if dir := filepath.Dir(bf.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(bf.Output, []byte(res.Source), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("💾 Wrote %s\n", bf.Output)
	return nil
}
