package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/store"
	"github.com/spf13/cobra"
)

func newExecutionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "Inspect job execution history",
	}
	cmd.AddCommand(
		newExecutionsListCmd(),
		newExecutionsGetCmd(),
		newExecutionsLogsCmd(),
	)
	return cmd
}

func newExecutionsListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list <job-id>",
		Short: "List executions for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			page, err := a.surface.GetExecutions(ctx, ownerFlag(cmd), args[0], store.ExecutionFilter{
				Status: store.ExecutionStatus(status),
			}, store.Page{Limit: 100})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tATTEMPT\tSTARTED\tDURATION\tERROR")
			for _, e := range page.Items {
				errMsg := e.ErrorMessage
				if errMsg == "" {
					errMsg = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					e.ID, e.Status, e.RetryAttempt, e.StartedAt.Format(time.RFC3339), e.Duration, errMsg)
			}
			tw.Flush()
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by execution status")
	return cmd
}

func newExecutionsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <execution-id>",
		Short: "Show a single execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			exec, err := a.surface.GetExecution(ctx, ownerFlag(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("id:          %s\n", exec.ID)
			fmt.Printf("job_id:      %s\n", exec.JobID)
			fmt.Printf("status:      %s\n", exec.Status)
			fmt.Printf("attempt:     %d\n", exec.RetryAttempt)
			fmt.Printf("started_at:  %s\n", exec.StartedAt.Format(time.RFC3339))
			if exec.FinishedAt != nil {
				fmt.Printf("finished_at: %s\n", exec.FinishedAt.Format(time.RFC3339))
			}
			fmt.Printf("duration:    %s\n", exec.Duration)
			if exec.ErrorMessage != "" {
				fmt.Printf("error:       %s\n", exec.ErrorMessage)
			}
			return nil
		},
	}
}

func newExecutionsLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <execution-id>",
		Short: "Show the log lines recorded for an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			logs, err := a.surface.GetExecutionLogs(ctx, ownerFlag(cmd), args[0])
			if err != nil {
				return err
			}
			for _, l := range logs {
				fmt.Printf("%s [%s] %s\n", l.Timestamp.Format(time.RFC3339), l.Level, l.Message)
			}
			return nil
		},
	}
}
