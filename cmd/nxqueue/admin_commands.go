package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nxqueue/internal/ipc"
)

func newAdminCommand(ctx *commandContext) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Change the administrative status of the daemon",
	}
	adminCmd.AddCommand(newAdminSetCommand(ctx, "activate", "Accept queue submissions", true))
	adminCmd.AddCommand(newAdminSetCommand(ctx, "passivate", "Refuse queue submissions", false))
	return adminCmd
}

func newAdminSetCommand(ctx *commandContext, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AdminSetActive(active)
				if err != nil {
					return err
				}
				label := "passive"
				if resp.Active {
					label = "active"
				}
				if !resp.Changed {
					fmt.Fprintf(cmd.OutOrStdout(), "Daemon already %s\n", label)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon is now %s\n", label)
				return nil
			})
		},
	}
}
