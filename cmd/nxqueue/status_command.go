package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"nxqueue/internal/api"
	"nxqueue/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, store and queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderKeyValues(statusPairs(resp)))
				if len(resp.Status.Queues) == 0 {
					fmt.Fprintln(out, "No queues registered")
					return nil
				}
				fmt.Fprint(out, renderSummaries(resp.Status.Queues))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func statusPairs(resp *ipc.StatusResponse) [][2]string {
	s := resp.Status
	mode := "passive"
	if s.Active {
		mode = "active"
	}
	pairs := [][2]string{
		{"Daemon running", yesNo(s.Running)},
		{"Administrative status", mode},
		{"PID", strconv.Itoa(s.PID)},
		{"Socket", resp.SocketPath},
	}
	if resp.APIAddr != "" {
		pairs = append(pairs, [2]string{"HTTP API", resp.APIAddr})
	}
	pairs = append(pairs,
		[2]string{"Lock backend", s.LockBackend},
		[2]string{"Daemon lock", s.LockFilePath},
		[2]string{"Document store", s.DocumentStorePath},
		[2]string{"Schema version", strconv.Itoa(s.Database.SchemaVersion)},
		[2]string{"Documents", strconv.FormatInt(s.Database.Documents, 10)},
		[2]string{"Integrity check", yesNo(s.Database.IntegrityCheck)},
	)
	if s.Database.Error != "" {
		pairs = append(pairs, [2]string{"Store error", s.Database.Error})
	}
	reaper := "disabled"
	if s.ReaperSchedule != "" {
		reaper = s.ReaperSchedule
	}
	return append(pairs, [2]string{"Reaper", reaper})
}

func renderSummaries(queues []api.QueueSummary) string {
	rows := make([][]string, 0, len(queues))
	for _, q := range queues {
		rows = append(rows, []string{
			q.Queue,
			q.ContentType,
			strconv.Itoa(q.Total),
			strconv.Itoa(q.Pending),
			strconv.Itoa(q.Launched),
			strconv.Itoa(q.Blacklisted),
		})
	}
	return renderTable(
		[]string{"Queue", "Content", "Total", "Pending", "Launched", "Blacklisted"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}
