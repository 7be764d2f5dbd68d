package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/forgelight/foreman/internal/config"
	"github.com/forgelight/foreman/internal/events"
	"github.com/forgelight/foreman/internal/executor"
	"github.com/forgelight/foreman/internal/gitops"
	"github.com/forgelight/foreman/internal/llm"
	"github.com/forgelight/foreman/internal/lock"
	"github.com/forgelight/foreman/internal/prompt"
	"github.com/forgelight/foreman/internal/validate"
	"github.com/forgelight/foreman/internal/workflow"
)

// newRunCmd creates the run command
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <request>",
		Short: "Run a coding request through the workflow",
		Long: `Run a coding request through the supervised workflow.

The request is planned first; unless --auto-approve is set, the plan is
shown and you are asked to approve it before any file is touched.
Implementation retries automatically while validation fails, up to the
healing budget.

Example:
  foreman run "Add a /health endpoint"
  foreman run "Fix the login redirect" --auto-approve
  foreman run "Migrate config to YAML" --auto-commit --max-healing-attempts 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := args[0]

			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}

			interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
			if !cfg.Workflow.AutoApprove && !interactive {
				return fmt.Errorf("approval requires a terminal on stdin; use --auto-approve for unattended runs")
			}

			runLock := lock.New(workDir)
			if err := runLock.Acquire(); err != nil {
				return err
			}
			defer runLock.Release()

			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			eng.On(printEvent)
			if !cfg.Workflow.AutoApprove {
				eng.On(func(ev events.Event) {
					if ev.Type == events.ApprovalRequested {
						promptApproval(eng)
					}
				})
			}

			summary, err := eng.Start(cmd.Context(), request)
			if err != nil {
				return err
			}
			printSummary(summary)

			if summary.Status == workflow.StatusFailed {
				return fmt.Errorf("workflow failed: %s", summary.Err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("auto-approve", false, "approve the plan without asking")
	cmd.Flags().Bool("auto-commit", false, "commit applied changes after review")
	cmd.Flags().Int("max-healing-attempts", 0, "override the healing retry budget")
	return cmd
}

// loadRunConfig loads the layered config and applies run flag overrides.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load(workDir)
	}
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("auto-approve") {
		cfg.Workflow.AutoApprove, _ = cmd.Flags().GetBool("auto-approve")
	}
	if cmd.Flags().Changed("auto-commit") {
		cfg.Workflow.AutoCommit, _ = cmd.Flags().GetBool("auto-commit")
	}
	if cmd.Flags().Changed("max-healing-attempts") {
		n, _ := cmd.Flags().GetInt("max-healing-attempts")
		if n < 1 {
			return nil, fmt.Errorf("--max-healing-attempts must be at least 1")
		}
		cfg.Workflow.MaxHealingAttempts = n
	}
	return cfg, nil
}

// buildEngine wires the completion client, prompt builder, validator, and
// committer into an executor and workflow engine.
func buildEngine(cfg *config.Config) (*workflow.Engine, error) {
	client := llm.NewClient(llm.Endpoint{
		Provider:  cfg.Model.Provider,
		Model:     cfg.Model.Name,
		BaseURL:   cfg.Model.BaseURL,
		APIKeyEnv: cfg.Model.APIKeyEnv,
	}, llm.WithLogger(slog.Default()))

	builder := prompt.NewBuilder(prompt.NewCache(cfg.Workflow.PromptDir), workDir)

	validator := validate.NewCommandRunner(validate.Commands{
		Test:      cfg.Validation.TestCommand,
		Typecheck: cfg.Validation.TypecheckCommand,
		Lint:      cfg.Validation.LintCommand,
	}, validate.WithTimeout(cfg.Validation.Timeout))

	committer := gitops.New(gitops.WithAuthor(cfg.Git.AuthorName, cfg.Git.AuthorEmail))

	// The engine stamps executor notifications with run id and phase, so
	// it has to exist before the notifier fires; the pointer is captured
	// by the closure and assigned after construction.
	var eng *workflow.Engine
	exec := executor.New(client, builder, workDir,
		executor.WithGeneration(cfg.Model.MaxTokens, cfg.Model.Temperature),
		executor.WithValidator(validator),
		executor.WithCommitter(committer),
		executor.WithMaxHealingAttempts(cfg.Workflow.MaxHealingAttempts),
		executor.WithNotifier(func(t events.Type, data map[string]any) {
			eng.Notify(t, data)
		}),
	)
	eng = workflow.New(exec,
		workflow.WithAutoApprove(cfg.Workflow.AutoApprove),
		workflow.WithAutoCommit(cfg.Workflow.AutoCommit),
		workflow.WithCommitPrefix(gitops.CommitPrefix),
	)
	return eng, nil
}

// promptApproval shows the pending plan and reads the decision from
// stdin. Runs synchronously inside the event listener; the engine is
// suspended until SubmitApproval is called.
func promptApproval(eng *workflow.Engine) {
	plan := eng.Context().Plan

	fmt.Println()
	fmt.Println("Plan awaiting approval")
	fmt.Println("  Title:     " + plan.Title)
	if plan.Objective != "" {
		fmt.Println("  Objective: " + plan.Objective)
	}
	for _, f := range plan.AffectedFiles {
		fmt.Printf("  - %s (%s) %s\n", f.Path, f.Action, f.Description)
	}
	for _, r := range plan.Risks {
		fmt.Printf("  ! %s [%s]\n", r.Description, r.Impact)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Approve this plan? [y/N]: ")
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))

	if answer == "y" || answer == "yes" {
		eng.SubmitApproval(true, "")
		return
	}

	fmt.Print("Feedback (optional): ")
	feedback, _ := reader.ReadString('\n')
	eng.SubmitApproval(false, strings.TrimSpace(feedback))
}

// printEvent streams workflow events to stdout as they happen.
func printEvent(ev events.Event) {
	switch ev.Type {
	case events.WorkflowStarted:
		fmt.Printf("workflow %s started\n", ev.WorkflowID)
	case events.AgentStarted:
		fmt.Printf("▸ %s\n", ev.Phase)
	case events.AgentCompleted:
		fmt.Printf("✓ %s\n", ev.Phase)
	case events.AgentFailed:
		if d, ok := ev.Data.(events.FailureData); ok {
			fmt.Printf("✗ %s: %s\n", ev.Phase, d.Message)
		} else {
			fmt.Printf("✗ %s\n", ev.Phase)
		}
	case events.HealingFailed:
		d, _ := ev.Data.(map[string]any)
		fmt.Printf("  healing: validation failed (attempt %v of %v)\n", d["attempt"], d["max_attempts"])
	case events.HealingSucceeded:
		d, _ := ev.Data.(map[string]any)
		fmt.Printf("  healing: validation passed (attempt %v)\n", d["attempt"])
	case events.WorkflowCompleted:
		fmt.Println("workflow completed")
	case events.WorkflowFailed:
		fmt.Println("workflow failed")
	case events.WorkflowCancelled:
		fmt.Println("workflow cancelled")
	}
}

func printSummary(s *workflow.Summary) {
	fmt.Println()
	fmt.Printf("Status:   %s\n", s.Status)
	fmt.Printf("Duration: %s\n", s.Duration.Round(10*time.Millisecond))
	for _, p := range workflow.Phases {
		fmt.Printf("  %-12s %s\n", p, s.Phases[p])
	}
	if s.Err != "" {
		fmt.Printf("Error: %s\n", s.Err)
	}
}
