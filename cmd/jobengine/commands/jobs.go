package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/jholhewres/jobengine/pkg/jobengine/config"
	"github.com/jholhewres/jobengine/pkg/jobengine/payload"
	"github.com/jholhewres/jobengine/pkg/jobengine/store"
	"github.com/spf13/cobra"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage scheduled jobs",
	}
	cmd.AddCommand(
		newJobsListCmd(),
		newJobsCreateCmd(),
		newJobsGetCmd(),
		newJobsPauseCmd(),
		newJobsResumeCmd(),
		newJobsDeleteCmd(),
		newJobsTriggerCmd(),
		newJobsUpcomingCmd(),
	)
	return cmd
}

func ownerFlag(cmd *cobra.Command) string {
	owner, _ := cmd.Root().PersistentFlags().GetString("owner")
	if owner == "" {
		return "default"
	}
	return owner
}

func newJobsListCmd() *cobra.Command {
	var status, kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs for the current owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := store.JobFilter{
				Status: store.JobStatus(status),
				Kind:   store.JobKind(kind),
				Sort:   store.SortCreatedAt,
				Dir:    store.Desc,
			}
			page, err := a.surface.ListJobs(ctx, ownerFlag(cmd), filter, store.Page{Limit: 100})
			if err != nil {
				return err
			}
			printJobTable(page.Items)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (one_time|recurring)")
	return cmd
}

func printJobTable(jobs []store.Job) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tSTATUS\tNEXT RUN")
	for _, j := range jobs {
		next := "-"
		if j.NextRun != nil {
			next = j.NextRun.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", j.ID, j.Name, j.Kind, j.Status, next)
	}
	tw.Flush()
}

func newJobsCreateCmd() *cobra.Command {
	var name, description, kind, cron, at, payloadJSON string
	var timeout time.Duration
	var maxRetries int
	var interactive bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new job",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if interactive {
				name, description, kind, cron, at, payloadJSON, timeout, maxRetries, err = runCreateWizard(a)
				if err != nil {
					return err
				}
			}

			spec, err := buildCreateSpec(name, description, kind, cron, at, payloadJSON, timeout, maxRetries, a.cfg.Worker)
			if err != nil {
				return err
			}

			job, err := a.surface.CreateJob(ctx, ownerFlag(cmd), spec)
			if err != nil {
				return err
			}
			fmt.Printf("created job %s (%s)\n", job.ID, job.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "job name")
	cmd.Flags().StringVar(&description, "description", "", "job description")
	cmd.Flags().StringVar(&kind, "kind", string(store.KindOneTime), "one_time|recurring")
	cmd.Flags().StringVar(&cron, "cron", "", "5-field cron expression (recurring jobs)")
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 timestamp (one-time scheduled jobs)")
	cmd.Flags().StringVar(&payloadJSON, "payload", "{}", "job payload as a JSON object")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "execution deadline (defaults to worker.default_job_timeout)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", -1, "retry budget (defaults to worker.default_max_retries)")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "build the job with an interactive form")
	return cmd
}

// runCreateWizard collects job fields through a terminal form, the
// same huh-driven interactive flow the pack uses for first-run setup,
// generalized here to a single job's create fields instead of a whole
// assistant configuration.
func runCreateWizard(a *app) (name, description, kind, cron, at, payloadJSON string, timeout time.Duration, maxRetries int, err error) {
	kind = string(store.KindOneTime)
	payloadJSON = "{}"
	var timeoutStr, maxRetriesStr string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Job name").Value(&name),
			huh.NewInput().Title("Description").Value(&description),
			huh.NewSelect[string]().
				Title("Kind").
				Options(huh.NewOption("one_time", string(store.KindOneTime)), huh.NewOption("recurring", string(store.KindRecurring))).
				Value(&kind),
			huh.NewInput().Title("Cron expression (recurring only)").Value(&cron),
			huh.NewInput().Title("Run at (RFC3339, one_time only)").Value(&at),
			huh.NewInput().Title("Payload JSON").Value(&payloadJSON),
			huh.NewInput().Title("Timeout (e.g. 5m, blank for default)").Value(&timeoutStr),
			huh.NewInput().Title("Max retries (blank for default)").Value(&maxRetriesStr),
		),
	)
	if err = form.Run(); err != nil {
		return
	}

	maxRetries = -1
	if timeoutStr != "" {
		timeout, err = time.ParseDuration(timeoutStr)
		if err != nil {
			return
		}
	}
	if maxRetriesStr != "" {
		if _, scanErr := fmt.Sscanf(maxRetriesStr, "%d", &maxRetries); scanErr != nil {
			err = fmt.Errorf("invalid max-retries value %q", maxRetriesStr)
			return
		}
	}
	return
}

func buildCreateSpec(name, description, kind, cron, at, payloadJSON string, timeout time.Duration, maxRetries int, worker config.WorkerConfig) (store.CreateJobSpec, error) {
	var sched store.Schedule
	switch store.JobKind(kind) {
	case store.KindRecurring:
		if cron == "" {
			return store.CreateJobSpec{}, fmt.Errorf("--cron is required for recurring jobs")
		}
		sched = store.Schedule{Kind: store.ScheduleCron, Cron: cron}
	default:
		if at != "" {
			parsed, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return store.CreateJobSpec{}, fmt.Errorf("invalid --at timestamp: %w", err)
			}
			sched = store.Schedule{Kind: store.ScheduleAt, At: parsed}
		} else {
			sched = store.Schedule{Kind: store.ScheduleImmediate}
		}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(payloadJSON), &raw); err != nil {
		return store.CreateJobSpec{}, fmt.Errorf("invalid --payload JSON: %w", err)
	}
	pl, err := payload.FromJSON(raw)
	if err != nil {
		return store.CreateJobSpec{}, err
	}

	if timeout <= 0 {
		timeout = worker.DefaultJobTimeout
	}
	if maxRetries < 0 {
		maxRetries = worker.DefaultMaxRetries
	}

	return store.CreateJobSpec{
		Name:        name,
		Description: description,
		Kind:        store.JobKind(kind),
		Schedule:    sched,
		Payload:     pl,
		Timeout:     timeout,
		MaxRetries:  maxRetries,
	}, nil
}

func newJobsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.surface.GetJob(ctx, ownerFlag(cmd), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(job)
		},
	}
}

func newJobsPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <job-id>",
		Short: "Pause a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			job, err := a.surface.PauseJob(ctx, ownerFlag(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("job %s is now %s\n", job.ID, job.Status)
			return nil
		},
	}
}

func newJobsResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <job-id>",
		Short: "Resume a paused job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			job, err := a.surface.ResumeJob(ctx, ownerFlag(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("job %s is now %s\n", job.ID, job.Status)
			return nil
		},
	}
}

func newJobsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Soft-delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.surface.DeleteJob(ctx, ownerFlag(cmd), args[0]); err != nil {
				return err
			}
			fmt.Printf("job %s deleted\n", args[0])
			return nil
		},
	}
}

func newJobsTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <job-id>",
		Short: "Manually trigger a job run, bypassing pause state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.surface.TriggerJob(ctx, ownerFlag(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Println(res.Status)
			return nil
		},
	}
}

func newJobsUpcomingCmd() *cobra.Command {
	var horizon time.Duration
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List active jobs whose next run falls within the horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			jobs, err := a.surface.UpcomingJobs(ctx, ownerFlag(cmd), horizon)
			if err != nil {
				return err
			}
			printJobTable(jobs)
			return nil
		},
	}
	cmd.Flags().DurationVar(&horizon, "horizon", 24*time.Hour, "lookahead window")
	return cmd
}
