package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/render"
)

// ContentLoader reads the published documents.
type ContentLoader interface {
	Load(ctx context.Context, kind content.Kind) ([]content.Item, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Content   ContentLoader
	Revisions RevisionLister // optional; the revisions resource is omitted when nil
	Version   string
}

// NewMCPServer creates an MCP server exposing the portfolio content.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"folio",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("folio: read-only access to portfolio works and blog posts."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_items",
			mcp.WithDescription("List works or blog posts with optional status filter and sort order."),
			mcp.WithString("kind", mcp.Description("works or blog"), mcp.Required()),
			mcp.WithString("filter", mcp.Description("Status to keep, or all (default all)")),
			mcp.WithString("sort", mcp.Description("date-desc, date-asc, progress-desc or progress-asc (default date-desc)")),
		),
		mcpListItems(deps),
	)

	s.AddTool(
		mcp.NewTool("get_item",
			mcp.WithDescription("Return one work or blog post as markdown."),
			mcp.WithString("kind", mcp.Description("works or blog"), mcp.Required()),
			mcp.WithNumber("id", mcp.Description("Item id"), mcp.Required()),
		),
		mcpGetItem(deps),
	)

	for _, kind := range content.Kinds {
		s.AddResource(
			mcp.NewResource(
				"folio://"+string(kind),
				kind.FileName(),
				mcp.WithResourceDescription(fmt.Sprintf("The published %s document", kind)),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceDocument(deps, kind),
		)
	}

	if deps.Revisions != nil {
		s.AddResource(
			mcp.NewResource(
				"folio://revisions",
				"Recent Saves",
				mcp.WithResourceDescription("Last 10 document writes"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRevisions(deps),
		)
	}

	return s
}

type itemSummary struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Status   string   `json:"status,omitempty"`
	Progress *int     `json:"progress,omitempty"`
	Date     string   `json:"date"`
	Tags     []string `json:"tags"`
}

func summarize(it content.Item) itemSummary {
	s := itemSummary{
		ID:    it.ID,
		Title: it.DisplayTitle(),
		Date:  it.SortDate(),
		Tags:  it.Tags,
	}
	if it.Kind == content.KindWorks {
		p := it.Progress
		s.Status = it.Status
		s.Progress = &p
	}
	return s
}

func mcpListItems(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := content.ParseKind(req.GetString("kind", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		key := content.SortDateDesc
		if v := req.GetString("sort", ""); v != "" {
			if key, err = content.ParseSortKey(v); err != nil {
				return mcpError(err.Error()), nil
			}
		}

		items, err := deps.Content.Load(ctx, kind)
		if err != nil {
			return mcpError(fmt.Sprintf("loading %s: %v", kind, err)), nil
		}
		items = content.Project(items, req.GetString("filter", content.FilterAll), key)

		out := make([]itemSummary, len(items))
		for i, it := range items {
			out[i] = summarize(it)
		}
		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal items: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := content.ParseKind(req.GetString("kind", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		id := req.GetInt("id", -1)
		if id < 0 {
			return mcpError("id is required"), nil
		}

		items, err := deps.Content.Load(ctx, kind)
		if err != nil {
			return mcpError(fmt.Sprintf("loading %s: %v", kind, err)), nil
		}
		it, ok := content.FindByID(items, id)
		if !ok {
			return mcpError(fmt.Sprintf("no %s item with id %d", kind, id)), nil
		}

		md, err := itemMarkdown(it)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(md), nil
	}
}

// itemMarkdown renders the item body through the page renderer and converts
// the result back to markdown, so every content format reads the same.
func itemMarkdown(it content.Item) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", it.DisplayTitle())
	if d := it.SortDate(); d != "" {
		fmt.Fprintf(&b, "Date: %s\n", render.FormatDate(d))
	}
	if it.Kind == content.KindWorks {
		fmt.Fprintf(&b, "Status: %s (%d%%)\n", render.StatusLabel(it.Status), it.Progress)
	}
	if len(it.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(it.Tags, ", "))
	}
	if it.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", it.Summary)
	}

	body, err := render.Body(it, "")
	if err != nil {
		return "", fmt.Errorf("rendering item %d: %w", it.ID, err)
	}
	if body.FirstChild != nil {
		md, err := htmltomarkdown.ConvertNode(body)
		if err != nil {
			return "", fmt.Errorf("converting item %d to markdown: %w", it.ID, err)
		}
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(string(md)))
	}

	for i, task := range it.Tasks {
		mark := " "
		if task.Completed {
			mark = "x"
		}
		if i == 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- [%s] %s\n", mark, task.Name)
	}
	for i, l := range it.Links {
		if i == 0 {
			b.WriteString("\n")
		}
		label := l.Label
		if label == "" {
			label = l.URL
		}
		fmt.Fprintf(&b, "- [%s](%s)\n", label, l.URL)
	}
	return b.String(), nil
}

func mcpResourceDocument(deps MCPDeps, kind content.Kind) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		items, err := deps.Content.Load(ctx, kind)
		if errors.Is(err, content.ErrNotExist) {
			items = []content.Item{}
		} else if err != nil {
			return nil, fmt.Errorf("loading %s: %w", kind, err)
		}

		b, err := content.Document{Kind: kind, Items: items}.Encode()
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", kind, err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRevisions(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		revs, err := deps.Revisions.ListRevisions("", 10)
		if err != nil {
			return nil, fmt.Errorf("failed to list revisions: %w", err)
		}

		out := make([]revisionJSON, len(revs))
		for i, rev := range revs {
			out[i] = revisionJSON(rev)
		}
		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal revisions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
