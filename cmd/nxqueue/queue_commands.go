package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nxqueue/internal/api"
	"nxqueue/internal/ipc"
	"nxqueue/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queues",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueSubmitCommand(ctx))
	queueCmd.AddCommand(newQueueUpdateCommand(ctx))
	queueCmd.AddCommand(newQueueItemCommand(ctx, "blacklist", "Abandon an item so it is never dispatched again", (*ipc.Client).QueueBlacklist, "Blacklisted"))
	queueCmd.AddCommand(newQueueItemCommand(ctx, "remove", "Delete an item", (*ipc.Client).QueueRemove, "Removed"))
	queueCmd.AddCommand(newQueueItemCommand(ctx, "relaunch", "Dispatch an item again", (*ipc.Client).QueueRelaunch, "Relaunched"))
	queueCmd.AddCommand(newQueueForgetOwnerCommand(ctx))
	queueCmd.AddCommand(newQueuePurgeCommand(ctx))

	return queueCmd
}

// resolveTarget accepts either "<queue> <item>" or a single content URI.
func resolveTarget(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		name, err := queue.ParseName(args[0])
		if err != nil {
			return "", "", err
		}
		q, err := queue.QueueNameOf(name)
		if err != nil {
			return "", "", err
		}
		item, err := queue.ItemOf(name)
		if err != nil {
			return "", "", err
		}
		return q, item, nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", errors.New("expected <queue> <item> or a content URI")
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Summarize registered queues",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Queues)
				}
				if len(resp.Queues) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No queues registered")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSummaries(resp.Queues))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <queue> [item] | show <content-uri>",
		Short: "List the items of a queue or show one item",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.QueueShowRequest{Owner: strings.TrimSpace(owner)}
			switch {
			case len(args) == 2:
				req.Queue, req.Item = args[0], args[1]
			case strings.HasPrefix(args[0], queue.Scheme+":"):
				name, err := queue.ParseName(args[0])
				if err != nil {
					return err
				}
				req.Queue = name.Opaque
				req.Item = name.Fragment
			default:
				req.Queue = args[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueShow(req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Items)
				}
				out := cmd.OutOrStdout()
				if req.Item != "" && len(resp.Items) == 1 {
					fmt.Fprint(out, renderKeyValues(itemPairs(resp.Items[0])))
					return nil
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderItems(resp.Items))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Only list items submitted for this owner URI")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newQueueSubmitCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var content string
	var contentFile string
	var force bool
	cmd := &cobra.Command{
		Use:   "submit <queue> <item> | submit <content-uri>",
		Short: "Submit content to a queue",
		Long: "Submit content to a queue. By default the submission is skipped when the item is\n" +
			"already known or another submitter holds its lock; --force stores it unconditionally\n" +
			"and fails if the item exists.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, item, err := resolveTarget(args)
			if err != nil {
				return err
			}
			payload, err := readContent(cmd.InOrStdin(), content, contentFile)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueSubmit(ipc.QueueSubmitRequest{
					Queue:     q,
					Owner:     owner,
					Item:      item,
					Content:   payload,
					IfUnknown: !force,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch resp.Outcome {
				case string(queue.OutcomeKnown):
					fmt.Fprintf(out, "Item %s is already known\n", item)
				case string(queue.OutcomeContended):
					fmt.Fprintf(out, "Item %s is being submitted by another client\n", item)
				default:
					count := int64(0)
					if resp.Item != nil {
						count = resp.Item.ExecutionCount
					}
					fmt.Fprintf(out, "Submitted %s to %s (executions: %d)\n", item, q, count)
				}
				if resp.ProcessingError != "" {
					return fmt.Errorf("processing failed: %s", resp.ProcessingError)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner URI the content is submitted for (required)")
	cmd.Flags().StringVar(&content, "content", "", "Payload; use - to read stdin")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Read the payload from a file")
	cmd.Flags().BoolVar(&force, "force", false, "Skip deduplication and content locking")
	_ = cmd.MarkFlagRequired("owner")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
	return cmd
}

func newQueueUpdateCommand(ctx *commandContext) *cobra.Command {
	var content string
	var contentFile string
	cmd := &cobra.Command{
		Use:   "update <queue> <item> | update <content-uri>",
		Short: "Replace the payload of an item",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, item, err := resolveTarget(args)
			if err != nil {
				return err
			}
			payload, err := readContent(cmd.InOrStdin(), content, contentFile)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueUpdate(ipc.QueueUpdateRequest{Queue: q, Item: item, Content: payload})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", resp.Item.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "Payload; use - to read stdin")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Read the payload from a file")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
	return cmd
}

func readContent(stdin io.Reader, content, contentFile string) (string, error) {
	switch {
	case contentFile != "":
		data, err := os.ReadFile(contentFile)
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return string(data), nil
	case content == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	default:
		return content, nil
	}
}

type itemCall func(*ipc.Client, string, string) (*ipc.QueueItemResponse, error)

func newQueueItemCommand(ctx *commandContext, use, short string, call itemCall, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <queue> <item> | " + use + " <content-uri>",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, item, err := resolveTarget(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := call(client, q, item)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (state: %s, executions: %d)\n",
					verb, resp.Item.Name, resp.Item.State, resp.Item.ExecutionCount)
				if resp.ProcessingError != "" {
					return fmt.Errorf("processing failed: %s", resp.ProcessingError)
				}
				return nil
			})
		},
	}
}

func newQueueForgetOwnerCommand(ctx *commandContext) *cobra.Command {
	var queueName string
	cmd := &cobra.Command{
		Use:   "forget-owner <owner-uri>",
		Short: "Delete every item submitted for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueForgetOwner(queueName, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items of %s\n", resp.Removed, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&queueName, "queue", "", "Restrict to one queue (default: all queues)")
	return cmd
}

func newQueuePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge [queue]",
		Short: "Remove expired blacklisted items",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var queueName string
			if len(args) == 1 {
				queueName = args[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueuePurge(queueName)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(resp.Removed))
				for name := range resp.Removed {
					names = append(names, name)
				}
				sort.Strings(names)
				rows := make([][]string, 0, len(names))
				for _, name := range names {
					rows = append(rows, []string{name, strconv.FormatInt(resp.Removed[name], 10)})
				}
				if len(rows) > 0 {
					fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Queue", "Purged"}, rows, []columnAlignment{alignLeft, alignRight}))
				}
				if resp.Error != "" {
					return fmt.Errorf("purge incomplete: %s", resp.Error)
				}
				return nil
			})
		},
	}
}

func renderItems(items []api.QueueItem) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.Item,
			item.Owner,
			item.State,
			strconv.FormatInt(item.ExecutionCount, 10),
			valueOrDash(item.ExecuteTime),
			truncate(item.Content, 40),
		})
	}
	return renderTable(
		[]string{"Item", "Owner", "State", "Runs", "Last Run", "Content"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func itemPairs(item api.QueueItem) [][2]string {
	return [][2]string{
		{"Name", item.Name},
		{"Queue", item.Queue},
		{"Item", item.Item},
		{"Owner", item.Owner},
		{"Content type", valueOrDash(item.ContentType)},
		{"State", item.State},
		{"Executions", strconv.FormatInt(item.ExecutionCount, 10)},
		{"Last run", valueOrDash(item.ExecuteTime)},
		{"Blacklisted", valueOrDash(item.BlacklistTime)},
		{"Created", valueOrDash(item.CreatedAt)},
		{"Content", item.Content},
	}
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
