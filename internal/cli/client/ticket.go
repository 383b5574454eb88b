package client

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/supporthub/internal/api/handlers"
	"github.com/cloo-solutions/supporthub/internal/pagination"
)

// TicketCmd creates the ticket command group.
func TicketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ticket",
		Short:   "Ticket workflow commands",
		Long:    "Create tickets, move them through pending → processing → resolved → closed and convert resolved tickets into knowledge articles.",
		Aliases: []string{"tickets", "t"},
	}

	cmd.AddCommand(ticketCreateCmd())
	cmd.AddCommand(ticketListCmd())
	cmd.AddCommand(ticketGetCmd())
	cmd.AddCommand(ticketLogsCmd())
	cmd.AddCommand(ticketStartCmd())
	cmd.AddCommand(ticketResolveCmd())
	cmd.AddCommand(ticketCloseCmd())
	cmd.AddCommand(ticketReassignCmd())
	cmd.AddCommand(ticketCommentCmd())
	cmd.AddCommand(ticketConvertCmd())

	return cmd
}

func ticketCreateCmd() *cobra.Command {
	var (
		req       handlers.CreateTicketRequest
		meta      handlers.TicketMetaPayload
		citedDocs []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			meta.CitedDocs = citedDocs
			if meta.IssueCategory != "" || meta.AlarmCode != "" || len(meta.CitedDocs) > 0 {
				req.Meta = &meta
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post("/api/tickets", req)
			if err != nil {
				return fmt.Errorf("failed to create ticket: %w", err)
			}
			return printTicket(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "Ticket title")
	cmd.Flags().StringVar(&req.Description, "description", "", "Problem description")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "Priority: low, medium, high or urgent (default medium)")
	cmd.Flags().StringVar(&req.Source, "source", "", "Source channel (default manual)")
	cmd.Flags().StringVar(&req.CustomerID, "customer", "", "Customer ID")
	cmd.Flags().StringVar(&req.DeviceID, "device-id", "", "Device ID")
	cmd.Flags().StringVar(&req.DeviceMN, "device-mn", "", "Device model number")
	cmd.Flags().StringVar(&req.SessionID, "session", "", "Originating chat session ID")
	cmd.Flags().StringVar(&req.TriggerMessageID, "trigger-message", "", "Chat message that triggered the ticket")
	cmd.Flags().StringVar(&req.AssigneeID, "assignee-id", "", "Initial assignee ID")
	cmd.Flags().StringVar(&req.AssigneeName, "assignee-name", "", "Initial assignee display name")
	cmd.Flags().StringVar(&meta.IssueCategory, "category", "", "Issue category")
	cmd.Flags().StringVar(&meta.AlarmCode, "alarm-code", "", "Device alarm code")
	cmd.Flags().StringSliceVar(&citedDocs, "cited-doc", nil, "Referenced document (repeatable)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func ticketListCmd() *cobra.Command {
	var (
		status, priority, deviceMN, assignee, keyword string
		page, pageSize                                int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List tickets",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIfNotEmpty(q, "status", status)
			setIfNotEmpty(q, "priority", priority)
			setIfNotEmpty(q, "deviceMn", deviceMN)
			setIfNotEmpty(q, "assigneeId", assignee)
			setIfNotEmpty(q, "keyword", keyword)
			pageQuery(q, page, pageSize)

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(withQuery("/api/tickets", q))
			if err != nil {
				return fmt.Errorf("failed to list tickets: %w", err)
			}

			var result pagination.PageResult[*handlers.TicketResponse]
			if err := resp.Decode(&result); err != nil {
				return err
			}
			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "TICKET NO\tSTATUS\tPRIORITY\tASSIGNEE\tTITLE")
			for _, t := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.TicketNo, t.Status, t.Priority, t.AssigneeName, t.Title)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\npage %d/%d, %d tickets\n", result.PageIndex, result.TotalPages(), result.TotalCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority")
	cmd.Flags().StringVar(&deviceMN, "device-mn", "", "Filter by device model number")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Filter by assignee ID")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Match ticket number, title or description")
	cmd.Flags().IntVar(&page, "page", 0, "Page index (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Page size")

	return cmd
}

func ticketGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <ticket_id>",
		Short:   "Show a ticket with its log",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get("/api/tickets/" + pathID(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get ticket: %w", err)
			}
			return printTicket(cmd, resp)
		},
	}
}

func ticketLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <ticket_id>",
		Short: "Show the ticket's action log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get("/api/tickets/" + pathID(args[0]) + "/logs")
			if err != nil {
				return fmt.Errorf("failed to get ticket logs: %w", err)
			}

			var logs []*handlers.TicketLogResponse
			if err := resp.Decode(&logs); err != nil {
				return err
			}
			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), logs)
			}
			return writeLogs(cmd.OutOrStdout(), logs)
		},
	}
}

func ticketStartCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "start <ticket_id>",
		Short: "Start work on a pending ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, args[0], "start", handlers.TransitionRequest{Note: note})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Log note")
	return cmd
}

func ticketResolveCmd() *cobra.Command {
	var note, summary string
	cmd := &cobra.Command{
		Use:   "resolve <ticket_id>",
		Short: "Resolve a ticket with the final solution summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, args[0], "resolve", handlers.TransitionRequest{Note: note, Summary: summary})
		},
	}
	cmd.Flags().StringVarP(&summary, "summary", "s", "", "Final solution summary")
	cmd.Flags().StringVar(&note, "note", "", "Log note")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

func ticketCloseCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "close <ticket_id>",
		Short: "Close a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, args[0], "close", handlers.TransitionRequest{Note: note})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Log note")
	return cmd
}

func ticketReassignCmd() *cobra.Command {
	var req handlers.TransitionRequest
	cmd := &cobra.Command{
		Use:   "reassign <ticket_id>",
		Short: "Hand a ticket to another engineer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, args[0], "reassign", req)
		},
	}
	cmd.Flags().StringVar(&req.AssigneeID, "assignee-id", "", "New assignee ID")
	cmd.Flags().StringVar(&req.AssigneeName, "assignee-name", "", "New assignee display name")
	cmd.Flags().StringVar(&req.Note, "note", "", "Log note")
	_ = cmd.MarkFlagRequired("assignee-id")
	return cmd
}

func runTransition(cmd *cobra.Command, ticketID, action string, req handlers.TransitionRequest) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}
	resp, err := api.Post("/api/tickets/"+pathID(ticketID)+"/"+action, req)
	if err != nil {
		return fmt.Errorf("failed to %s ticket: %w", action, err)
	}
	return printTicket(cmd, resp)
}

func ticketCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <ticket_id> <text>...",
		Short: "Add a comment to the ticket log",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post("/api/tickets/"+pathID(args[0])+"/logs", handlers.CommentRequest{
				Content: strings.Join(args[1:], " "),
			})
			if err != nil {
				return fmt.Errorf("failed to add comment: %w", err)
			}

			var entry handlers.TicketLogResponse
			if err := resp.Decode(&entry); err != nil {
				return err
			}
			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comment %d added\n", entry.ID)
			return nil
		},
	}
}

func ticketConvertCmd() *cobra.Command {
	var noIndex bool
	cmd := &cobra.Command{
		Use:   "convert <ticket_id>",
		Short: "Convert a resolved ticket into a draft knowledge article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trigger := !noIndex

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post("/api/tickets/"+pathID(args[0])+"/convert-to-kb", handlers.ConvertRequest{
				TriggerIndexing: &trigger,
			})
			if err != nil {
				return fmt.Errorf("failed to convert ticket: %w", err)
			}

			var result handlers.ConvertResponse
			if err := resp.Decode(&result); err != nil {
				return err
			}
			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Article: %s\n%s\n", result.ArticleID, result.Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Skip the external indexing call")
	return cmd
}

func printTicket(cmd *cobra.Command, resp *APIResponse) error {
	var t handlers.TicketResponse
	if err := resp.Decode(&t); err != nil {
		return err
	}
	if wantsJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), t)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ticket: %s (%s)\n", t.TicketNo, t.ID)
	fmt.Fprintf(out, "Title: %s\n", t.Title)
	fmt.Fprintf(out, "Status: %s\n", t.Status)
	fmt.Fprintf(out, "Priority: %s\n", t.Priority)
	if t.AssigneeID != "" {
		fmt.Fprintf(out, "Assignee: %s (%s)\n", t.AssigneeName, t.AssigneeID)
	}
	if t.DeviceMN != "" {
		fmt.Fprintf(out, "Device: %s %s\n", t.DeviceMN, t.DeviceID)
	}
	if t.FinalSolutionSummary != "" {
		fmt.Fprintf(out, "Solution: %s\n", t.FinalSolutionSummary)
	}
	if t.KBArticleID != "" {
		fmt.Fprintf(out, "Article: %s\n", t.KBArticleID)
	}
	fmt.Fprintf(out, "Created: %s\n", t.CreatedAt)
	fmt.Fprintf(out, "Updated: %s\n", t.UpdatedAt)
	if t.Description != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, t.Description)
	}
	if len(t.Logs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "--- Log ---")
		return writeLogs(out, t.Logs)
	}
	return nil
}

func writeLogs(out io.Writer, logs []*handlers.TicketLogResponse) error {
	w := newTable(out)
	for _, l := range logs {
		operator := l.OperatorName
		if operator == "" {
			operator = l.OperatorID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.CreatedAt, l.Action, operator, l.Content)
	}
	return w.Flush()
}
