package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/importer"
	"github.com/kalambet/folio/internal/storage"
)

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a content document as JSON",
	Long: `Print a content document as JSON, optionally filtered and sorted.

Examples:
  folio export --kind works --filter completed --sort progress-desc
  folio export --kind blog --output blog-backup.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kindStr, _ := cmd.Flags().GetString("kind")
		filter, _ := cmd.Flags().GetString("filter")
		sortStr, _ := cmd.Flags().GetString("sort")
		output, _ := cmd.Flags().GetString("output")

		kind, err := content.ParseKind(kindStr)
		if err != nil {
			return err
		}
		key, err := content.ParseSortKey(sortStr)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		library := content.NewLibrary(cfg.Content.DataDir, map[content.Kind]string{
			content.KindWorks: cfg.Content.WorksSource,
			content.KindBlog:  cfg.Content.BlogSource,
		}, nil)

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		n, err := exportDocument(cmd.Context(), w, library, kind, filter, key)
		if err != nil {
			return err
		}
		if output != "" {
			printSuccess("Exported %d %s items to %s", n, kind, output)
		}
		return nil
	},
}

// exportDocument writes kind's projected document to w and returns the
// number of items written.
func exportDocument(ctx context.Context, w io.Writer, src importer.Loader, kind content.Kind, filter string, key content.SortKey) (int, error) {
	items, err := src.Load(ctx, kind)
	if err != nil {
		return 0, err
	}
	doc := content.Document{Kind: kind, Items: content.Project(items, filter, key)}
	data, err := doc.Encode()
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return 0, err
	}
	return len(doc.Items), nil
}

func init() {
	exportCmd.Flags().String("kind", string(content.KindWorks), "document to export: works or blog")
	exportCmd.Flags().String("filter", content.FilterAll, "status filter (works only)")
	exportCmd.Flags().String("sort", string(content.SortDateDesc), "sort key: date-desc, date-asc, progress-desc, progress-asc")
	exportCmd.Flags().String("output", "", "output file path (default: stdout)")
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Append markdown or PDF files to the content documents",
	Long: `Append markdown or PDF files to the content documents.

Markdown files may carry YAML front matter (title, date, tags, summary,
thumbnail; kind: works with status, progress and lastUpdated). PDF files
become plain-text blog posts.

Examples:
  folio import posts/hello.md
  folio import talk.pdf notes/*.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Log.Level)

		svc, err := openServices(cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		printStep("Importing %d file(s) into %s", len(args), cfg.Content.DataDir)
		im := &importer.Importer{Content: svc.library, Saver: svc.saver, Logger: logger}
		items, err := im.Import(cmd.Context(), args...)
		for _, it := range items {
			printSuccess("%s #%d %s", it.Kind, it.ID, it.DisplayTitle())
		}
		return err
	},
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the content over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// stdout carries the protocol; logs go to stderr
		logger := newLogger(cfg.Log.Level)

		svc, err := openServices(cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Content:   svc.library,
			Revisions: svc.store,
			Version:   version,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stdio := server.NewStdioServer(mcpSrv)
		logger.Info("MCP server started (stdio transport)")
		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}

// --- visits ---

var visitsCmd = &cobra.Command{
	Use:   "visits",
	Short: "Show the visit counter without recording a visit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		n, err := store.GetCounter(storage.VisitsCounter)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		printStatus("Config file", "%s", config.ConfigFilePath())
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set <key> <value>",
	Short:             "Set a configuration value",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeConfigKey,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:               "unset <key>",
	Short:             "Remove a configuration value, restoring its default",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeConfigKey,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func completeConfigKey(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
