package client

import (
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/supporthub/internal/api/handlers"
	"github.com/cloo-solutions/supporthub/internal/pagination"
)

// KbCmd creates the knowledge base command group.
func KbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kb",
		Short:   "Knowledge base commands",
		Long:    "Author, publish and search knowledge articles and manage their assets.",
		Aliases: []string{"knowledge"},
	}

	cmd.AddCommand(kbCreateCmd())
	cmd.AddCommand(kbUpdateCmd())
	cmd.AddCommand(kbGetCmd())
	cmd.AddCommand(kbSearchCmd())
	cmd.AddCommand(kbLifecycleCmd("publish", "Publish an article and queue it for embedding"))
	cmd.AddCommand(kbLifecycleCmd("archive", "Archive a published article"))
	cmd.AddCommand(kbLifecycleCmd("restore", "Restore a soft-deleted article"))
	cmd.AddCommand(kbDeleteCmd())
	cmd.AddCommand(kbChunksCmd())
	cmd.AddCommand(AssetCmd())

	return cmd
}

func articleFlags(cmd *cobra.Command, req *handlers.ArticleRequest) {
	cmd.Flags().StringVar(&req.Title, "title", "", "Article title")
	cmd.Flags().StringVar(&req.QuestionText, "question", "", "Symptom or question")
	cmd.Flags().StringVar(&req.CauseText, "cause", "", "Root cause")
	cmd.Flags().StringVar(&req.SolutionText, "solution", "", "Solution steps")
	cmd.Flags().StringVar(&req.ScopeJSON, "scope-json", "", "Applicability scope as a JSON object")
	cmd.Flags().StringVar(&req.Tags, "tags", "", "Comma separated tags")
}

func kbCreateCmd() *cobra.Command {
	var req handlers.ArticleRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft article",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post("/api/knowledge", req)
			if err != nil {
				return fmt.Errorf("failed to create article: %w", err)
			}
			return printArticle(cmd, resp)
		},
	}
	articleFlags(cmd, &req)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// kbUpdateCmd fetches the article first so unset flags keep their values.
func kbUpdateCmd() *cobra.Command {
	var req handlers.ArticleRequest
	cmd := &cobra.Command{
		Use:   "update <article_id>",
		Short: "Edit an article's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path := "/api/knowledge/" + pathID(args[0])

			resp, err := api.Get(path)
			if err != nil {
				return fmt.Errorf("failed to get article: %w", err)
			}
			var current handlers.ArticleResponse
			if err := resp.Decode(&current); err != nil {
				return err
			}

			merged := handlers.ArticleRequest{
				Title:        pick(cmd, "title", req.Title, current.Title),
				QuestionText: pick(cmd, "question", req.QuestionText, current.QuestionText),
				CauseText:    pick(cmd, "cause", req.CauseText, current.CauseText),
				SolutionText: pick(cmd, "solution", req.SolutionText, current.SolutionText),
				ScopeJSON:    pick(cmd, "scope-json", req.ScopeJSON, current.ScopeJSON),
				Tags:         pick(cmd, "tags", req.Tags, current.Tags),
			}

			resp, err = api.Put(path, merged)
			if err != nil {
				return fmt.Errorf("failed to update article: %w", err)
			}
			return printArticle(cmd, resp)
		},
	}
	articleFlags(cmd, &req)
	return cmd
}

func pick(cmd *cobra.Command, flag, value, current string) string {
	if cmd.Flags().Changed(flag) {
		return value
	}
	return current
}

func kbGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <article_id>",
		Short:   "Show an article with its assets",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get("/api/knowledge/" + pathID(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get article: %w", err)
			}
			return printArticle(cmd, resp)
		},
	}
}

func kbSearchCmd() *cobra.Command {
	var (
		keyword, status, tag, scope string
		page, pageSize              int
	)

	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search articles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				keyword = args[0]
			}
			q := url.Values{}
			setIfNotEmpty(q, "keyword", keyword)
			setIfNotEmpty(q, "status", status)
			setIfNotEmpty(q, "tag", tag)
			setIfNotEmpty(q, "scope", scope)
			pageQuery(q, page, pageSize)

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(withQuery("/api/knowledge/search", q))
			if err != nil {
				return fmt.Errorf("failed to search articles: %w", err)
			}

			var result pagination.PageResult[*handlers.ArticleResponse]
			if err := resp.Decode(&result); err != nil {
				return err
			}
			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tSTATUS\tVERSION\tTITLE")
			for _, a := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", a.ID, a.Status, a.Version, a.Title)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\npage %d/%d, %d articles\n", result.PageIndex, result.TotalPages(), result.TotalCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: draft, published or archived")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	cmd.Flags().StringVar(&scope, "scope", "", "Filter by scope text")
	cmd.Flags().IntVar(&page, "page", 0, "Page index (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Page size")

	return cmd
}

func kbLifecycleCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <article_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post("/api/knowledge/"+pathID(args[0])+"/"+action, nil)
			if err != nil {
				return fmt.Errorf("failed to %s article: %w", action, err)
			}
			return printArticle(cmd, resp)
		},
	}
}

func kbDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <article_id>",
		Short:   "Soft-delete an article and its assets",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete("/api/knowledge/" + pathID(args[0])); err != nil {
				return fmt.Errorf("failed to delete article: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted article %s\n", args[0])
			return nil
		},
	}
}

func kbChunksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chunks <article_id>",
		Short: "Show the retrieval chunks of an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get("/api/knowledge/" + pathID(args[0]) + "/chunks")
			if err != nil {
				return fmt.Errorf("failed to get chunks: %w", err)
			}

			var chunks []*handlers.ChunkResponse
			if err := resp.Decode(&chunks); err != nil {
				return err
			}
			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), chunks)
			}
			out := cmd.OutOrStdout()
			for _, c := range chunks {
				fmt.Fprintf(out, "#%d [%s] %s\n%s\n\n", c.ChunkIndex, c.SourceFields, c.Hash[:min(12, len(c.Hash))], c.ChunkText)
			}
			return nil
		},
	}
}

// AssetCmd creates the kb asset command group.
func AssetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Article asset commands",
	}
	cmd.AddCommand(assetAddCmd())
	cmd.AddCommand(assetListCmd())
	cmd.AddCommand(assetDeleteCmd())
	return cmd
}

func assetAddCmd() *cobra.Command {
	var (
		filePath string
		req      handlers.InitUploadRequest
		duration int
	)

	cmd := &cobra.Command{
		Use:   "add <article_id>",
		Short: "Attach a file or external URL to an article",
		Long: `Registers an asset on the article. With --file the file is uploaded to
the presigned URL returned by the server; with --url the link is stored as is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (filePath == "") == (req.URL == "") {
				return fmt.Errorf("exactly one of --file or --url is required")
			}
			if cmd.Flags().Changed("duration") {
				req.Duration = &duration
			}
			if filePath != "" {
				stat, err := os.Stat(filePath)
				if err != nil {
					return fmt.Errorf("failed to stat file: %w", err)
				}
				req.Size = stat.Size()
				if req.FileName == "" {
					req.FileName = filepath.Base(filePath)
				}
				if req.ContentType == "" {
					req.ContentType = mime.TypeByExtension(filepath.Ext(filePath))
				}
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post("/api/knowledge/"+pathID(args[0])+"/assets", req)
			if err != nil {
				return fmt.Errorf("failed to register asset: %w", err)
			}
			var result handlers.InitUploadResponse
			if err := resp.Decode(&result); err != nil {
				return err
			}

			if filePath != "" {
				if result.UploadURL == "" {
					return fmt.Errorf("asset %s registered but the server has no object storage for uploads", result.Asset.ID)
				}
				if err := api.UploadFile(result.UploadURL, filePath, req.ContentType, nil); err != nil {
					return err
				}
			}

			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result.Asset)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %s (%s) attached\n", result.Asset.ID, result.Asset.AssetType)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Local file to upload")
	cmd.Flags().StringVar(&req.URL, "url", "", "External URL to link instead of uploading")
	cmd.Flags().StringVar(&req.FileName, "name", "", "File name (defaults to the base name of --file)")
	cmd.Flags().StringVar(&req.ContentType, "content-type", "", "MIME type (guessed from the extension)")
	cmd.Flags().StringVar(&req.AssetType, "type", "", "Asset type: image, video, pdf, doc or other (inferred when empty)")
	cmd.Flags().IntVar(&duration, "duration", 0, "Video duration in seconds")

	return cmd
}

func assetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <article_id>",
		Short:   "List an article's assets",
		Aliases: []string{"ls"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get("/api/knowledge/" + pathID(args[0]) + "/assets")
			if err != nil {
				return fmt.Errorf("failed to list assets: %w", err)
			}

			var assets []*handlers.AssetResponse
			if err := resp.Decode(&assets); err != nil {
				return err
			}
			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), assets)
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tTYPE\tSIZE\tNAME")
			for _, a := range assets {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", a.ID, a.AssetType, a.Size, a.FileName)
			}
			return w.Flush()
		},
	}
}

func assetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <asset_id>",
		Short:   "Remove an asset from its article",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete("/api/assets/" + pathID(args[0])); err != nil {
				return fmt.Errorf("failed to delete asset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted asset %s\n", args[0])
			return nil
		},
	}
}

func printArticle(cmd *cobra.Command, resp *APIResponse) error {
	var a handlers.ArticleResponse
	if err := resp.Decode(&a); err != nil {
		return err
	}
	if wantsJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), a)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Article: %s\n", a.ID)
	fmt.Fprintf(out, "Title: %s\n", a.Title)
	fmt.Fprintf(out, "Status: %s (v%d)\n", a.Status, a.Version)
	if a.Tags != "" {
		fmt.Fprintf(out, "Tags: %s\n", a.Tags)
	}
	if a.SourceType != "" {
		fmt.Fprintf(out, "Source: %s %s\n", a.SourceType, a.SourceID)
	}
	fmt.Fprintf(out, "Updated: %s\n", a.UpdatedAt)
	section(out, "Question", a.QuestionText)
	section(out, "Cause", a.CauseText)
	section(out, "Solution", a.SolutionText)
	if len(a.Assets) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "--- Assets ---")
		for _, as := range a.Assets {
			fmt.Fprintf(out, "%s  %s  %s\n", as.ID, as.AssetType, as.FileName)
		}
	}
	return nil
}

func section(out io.Writer, title, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(out, "\n--- %s ---\n%s\n", title, body)
}
