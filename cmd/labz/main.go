package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"labz/internal/config"
	"labz/internal/explain"
	"labz/internal/gallery"
	"labz/internal/pipeline"
	"labz/internal/solidity"
	"labz/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "labz",
		Short: "Confidential contract template gallery and composer",
	}
	dbPath     string
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "labz.db", "Path to the local template/project database (SQLite)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "labz.yaml", "Path to the config file")

	buildCmd.Flags().StringVar(&catalogPath, "catalog", "", "Extra block catalog (YAML) merged over the built-ins")
	explainCmd.Flags().StringVar(&explainFunction, "function", "", "Explain a single function instead of the whole contract")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(explainCmd)
}

func initStore() (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(dbPath)
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory for templates and cache the parsed models locally",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		root := cfg.Templates.Dir
		if len(args) > 0 {
			root = args[0]
		}

		fmt.Printf("📂 Scanning template directory: %s\n", root)

		store, err := initStore()
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		start := time.Now()
		infos, err := gallery.NewScanner().List(root)
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("✅ Parsed %d template(s) in %v.\n", len(infos), time.Since(start))

		ctx := context.Background()
		fmt.Println("💾 Saving to local database...")
		if err := store.SaveTemplates(ctx, infos); err != nil {
			log.Fatalf("Failed to save templates: %v", err)
		}

		fmt.Printf("🎉 Scan complete! Database: %s\n", dbPath)
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List cached templates",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := initStore()
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		infos, err := store.ListTemplates(context.Background())
		if err != nil {
			log.Fatalf("Failed to list templates: %v", err)
		}

		if len(infos) == 0 {
			fmt.Println("No templates cached. Run 'labz scan' first.")
			return
		}
		for _, info := range infos {
			fns := 0
			if info.Contract != nil {
				fns = len(info.Contract.Functions)
			}
			fmt.Printf("%-30s %2d function(s)  %s\n", info.Name, fns, info.Path)
		}
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file.sol>",
	Short: "Parse a contract and print its model as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read file: %v", err)
		}

		contract, err := solidity.Parse(string(data))
		if err != nil {
			// Best-effort: report the problem but still print the partial model.
			fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
		}

		out, err := json.MarshalIndent(contract, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode model: %v", err)
		}
		fmt.Println(string(out))
	},
}

var catalogPath string

var buildCmd = &cobra.Command{
	Use:   "build <project.yaml>",
	Short: "Merge a project's blocks into its template and write the result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b := pipeline.NewBuild(args[0])
		b.CatalogPath = catalogPath
		if err := b.Run(); err != nil {
			log.Fatalf("Build failed: %v", err)
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <project.yaml>",
	Short: "Generate a contract from scratch from a project description",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b := pipeline.NewBuild(args[0])
		if err := b.Run(); err != nil {
			log.Fatalf("Generation failed: %v", err)
		}
	},
}

var explainFunction string

var explainCmd = &cobra.Command{
	Use:   "explain <file.sol>",
	Short: "Explain what a contract does with its encrypted values",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read file: %v", err)
		}

		contract, err := solidity.Parse(string(data))
		if err != nil {
			log.Fatalf("Failed to parse contract: %v", err)
		}

		ctx := context.Background()
		summarizer, err := explain.NewSummarizer(ctx, explain.SummarizerOptions{
			Provider: cfg.AI.Provider,
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
		})
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}

		var text string
		if explainFunction != "" {
			fns := contract.FindFunction(explainFunction)
			if len(fns) == 0 {
				log.Fatalf("Function %q not found in %s", explainFunction, contract.Name)
			}
			text, err = summarizer.ExplainFunction(ctx, contract, fns[0])
		} else {
			text, err = summarizer.ExplainContract(ctx, contract)
		}
		if err != nil {
			log.Fatalf("Failed to generate explanation: %v", err)
		}

		fmt.Println(text)
	},
}
