package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	gangway "github.com/gangwayhq/gangway"
	"github.com/gangwayhq/gangway/internal/demoapi"
	"github.com/gangwayhq/gangway/internal/presentation/tui"
	"github.com/gangwayhq/gangway/pkg/adapters/httpapi"
	"github.com/gangwayhq/gangway/pkg/adapters/memory"
	"github.com/gangwayhq/gangway/pkg/flow"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive onboarding wizard",
	Long:  `Redeems an invitation token against the backend and walks the onboarding steps interactively. Progress is cached locally and synced to the server in the background.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWizard(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("token", "", "Invitation token to redeem")
	runCmd.Flags().String("single-step", "", "Run in single-step mode for the given step ID")
	runCmd.Flags().Bool("demo", false, "Run against an in-process demo backend with canned data")
}

func runWizard(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := newLogger(cmd)

	token, _ := cmd.Flags().GetString("token")
	singleStep, _ := cmd.Flags().GetString("single-step")
	demo, _ := cmd.Flags().GetBool("demo")

	reg, err := loadRegistry(cmd)
	if err != nil {
		return err
	}

	opts := []gangway.Option{
		gangway.WithLogger(logger),
		gangway.WithRegistry(reg),
	}

	var base string
	if demo {
		backend := httptest.NewServer(demoapi.New(demoapi.WithLogger(logger)).Handler())
		defer backend.Close()
		base = backend.URL
		if token == "" {
			token = "demo"
		}
		opts = append(opts, gangway.WithStore(memory.NewStore()))
	} else {
		base, _ = cmd.Flags().GetString("api")
		opts = append(opts, gangway.WithStore(newStore(cmd)))
	}
	if token == "" {
		return fmt.Errorf("--token is required (or use --demo)")
	}

	client := httpapi.NewClient(base)
	ctrl := gangway.New(client, opts...)

	if singleStep != "" {
		err = ctrl.StartSingleStep(ctx, token, singleStep)
	} else {
		err = ctrl.Start(ctx, token)
	}
	if err != nil {
		return err
	}
	defer ctrl.Close()

	tui.PrintBanner()
	return wizardLoop(ctx, ctrl)
}

// wizardLoop is the interactive event loop: render the step list and the
// current step, then apply one command per line of input.
func wizardLoop(ctx context.Context, ctrl *gangway.Controller) error {
	render := tui.NewRenderer()
	reader := bufio.NewReader(os.Stdin)

	for {
		printOverview(ctrl)

		current, err := ctrl.CurrentStep()
		if err != nil {
			return err
		}
		steps := ctrl.Steps()
		p, err := ctrl.Progress()
		if err != nil {
			return err
		}

		heading := tui.StepHeading(current, p.CurrentStepIndex+1, len(steps))
		if out, rerr := render(heading); rerr == nil {
			fmt.Print(out)
		} else {
			fmt.Println(heading)
		}

		fmt.Println("commands: (c)omplete, (s)ave key=value, (n)ext, (b)ack, (g)oto N, (q)uit")
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil // EOF ends the session
		}
		if done := applyCommand(ctx, ctrl, current, strings.TrimSpace(line)); done {
			ctrl.Flush(ctx)
			fmt.Println("Session saved. Bye!")
			return nil
		}
	}
}

func printOverview(ctrl *gangway.Controller) {
	p, err := ctrl.Progress()
	if err != nil {
		return
	}

	fmt.Println()
	fmt.Println(tui.ProgressBar(p.PercentComplete, 30))
	for i, step := range ctrl.Steps() {
		state := p.StepStates[step.ID]
		marker := "  "
		if i == p.CurrentStepIndex {
			marker = "->"
		}
		fmt.Printf(" %s %s %s\n", marker, tui.StatusIcon(state), step.Name)
	}

	status := ctrl.SaveStatus()
	if status.PendingRemote > 0 {
		fmt.Printf("    (%d change(s) syncing in background)\n", status.PendingRemote)
	}
	fmt.Println()
}

// applyCommand executes one wizard command. It returns true when the
// session should end.
func applyCommand(ctx context.Context, ctrl *gangway.Controller, current flow.Step, input string) bool {
	cmd, rest, _ := strings.Cut(input, " ")

	switch cmd {
	case "q", "quit", "exit":
		return true

	case "c", "complete":
		data := flow.StepData{"completed": true}
		if err := ctrl.MarkStepComplete(ctx, current.ID, data); err != nil {
			fmt.Printf("Cannot complete: %v\n", err)
		}

	case "s", "save":
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			fmt.Println("usage: save key=value")
			return false
		}
		if err := ctrl.SaveProgress(ctx, current.ID, flow.StepData{key: value}); err != nil {
			fmt.Printf("Cannot save: %v\n", err)
		}

	case "n", "next":
		decision, err := ctrl.AdvanceToNextStep(ctx)
		if err != nil {
			fmt.Printf("Blocked: %v\n", err)
			return false
		}
		for _, w := range decision.Warnings {
			fmt.Printf("Warning: %s\n", w)
		}

	case "b", "back":
		if err := ctrl.GoToPreviousStep(ctx); err != nil {
			fmt.Printf("Cannot go back: %v\n", err)
		}

	case "g", "goto":
		index, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			fmt.Println("usage: goto N (1-based step number)")
			return false
		}
		if err := ctrl.GoToStep(ctx, index-1); err != nil {
			fmt.Printf("Cannot jump: %v\n", err)
		}

	default:
		if input != "" {
			fmt.Printf("Unknown command %q\n", cmd)
		}
	}
	return false
}
