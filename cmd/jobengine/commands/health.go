package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show scheduler, executor, and dispatch queue metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.surface.Health(ctx, a.queue)
			if err != nil {
				return err
			}

			fmt.Println("safety sync:")
			fmt.Printf("  missed_jobs_found    %d\n", snap.Metrics.MissedJobsFound)
			fmt.Printf("  added_to_queue       %d\n", snap.Metrics.AddedToQueue)
			fmt.Printf("  failed_to_enqueue    %d\n", snap.Metrics.FailedToEnqueue)
			fmt.Printf("  sync_duration_ms     %d\n", snap.Metrics.SyncDurationMS)
			fmt.Println("executor:")
			fmt.Printf("  started              %d\n", snap.Metrics.Started)
			fmt.Printf("  succeeded            %d\n", snap.Metrics.Succeeded)
			fmt.Printf("  failed               %d\n", snap.Metrics.Failed)
			fmt.Printf("  timed_out            %d\n", snap.Metrics.TimedOut)
			fmt.Println("dispatch queue:")
			fmt.Printf("  delayed              %d\n", snap.Queue.Delayed)
			fmt.Printf("  waiting              %d\n", snap.Queue.Waiting)
			fmt.Printf("  active               %d\n", snap.Queue.Active)
			fmt.Printf("  complete             %d\n", snap.Queue.Complete)
			fmt.Printf("  dead                 %d\n", snap.Queue.Dead)
			return nil
		},
	}
}
