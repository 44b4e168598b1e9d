package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"phab/internal/config"
	"phab/internal/exitcode"
	"phab/internal/metric"
	"phab/internal/output"
	"phab/internal/service"
)

// defaultDoneStatus is the Maniphest status counted as done by task stats.
const defaultDoneStatus = "resolved"

func init() {
	Register(&TaskDetailCmd{})
	Register(&TaskStatsCmd{})
}

// TaskDetailCmd implements the task detail command.
// It prints a task and all of its descendants.
type TaskDetailCmd struct {
	printJSON bool
	printYAML bool
}

// SetFormat sets the output format (for testing).
func (c *TaskDetailCmd) SetFormat(printJSON, printYAML bool) {
	c.printJSON = printJSON
	c.printYAML = printYAML
}

func (c *TaskDetailCmd) Name() string      { return "task detail" }
func (c *TaskDetailCmd) Aliases() []string { return []string{"show"} }
func (c *TaskDetailCmd) Synopsis() string  { return "Print a task and its subtasks" }
func (c *TaskDetailCmd) Usage() string {
	return "phab task detail [common flags] [--print-json|--print-yaml] <task_id>"
}
func (c *TaskDetailCmd) NeedsAuth() bool { return true }

func (c *TaskDetailCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.printJSON, "print-json", false, "print the task tree as JSON")
	fs.BoolVar(&c.printYAML, "print-yaml", false, "print the task tree as YAML")
}

func (c *TaskDetailCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: task id required")
		return exitcode.UserError
	}
	if c.printJSON && c.printYAML {
		fmt.Fprintln(errOut, "error: --print-json and --print-yaml are mutually exclusive")
		return exitcode.UserError
	}

	taskID := args[0]
	family, err := svc.GetTaskFamily(ctx, taskID)
	if err != nil {
		return backendFailure(errOut, err)
	}
	if family == nil {
		fmt.Fprintf(errOut, "error: could not find task %s\n", taskID)
		return exitcode.UserError
	}

	families := []service.TaskFamily{*family}
	switch {
	case c.printJSON:
		err = output.WriteJSON(out, families)
	case c.printYAML:
		err = output.WriteYAML(out, families)
	default:
		output.FormatTaskFamilies(out, families, 0)
	}
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to write output: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}

// TaskStatsCmd implements the task stats command.
// It counts done tasks and story points across a task family.
type TaskStatsCmd struct {
	doneStatuses []string
}

// SetDoneStatuses sets the statuses counted as done (for testing).
func (c *TaskStatsCmd) SetDoneStatuses(statuses ...string) {
	c.doneStatuses = statuses
}

func (c *TaskStatsCmd) Name() string      { return "task stats" }
func (c *TaskStatsCmd) Aliases() []string { return nil }
func (c *TaskStatsCmd) Synopsis() string  { return "Count done tasks in a task family" }
func (c *TaskStatsCmd) Usage() string {
	return "phab task stats [common flags] [--done-status <status>]... <task_id>"
}
func (c *TaskStatsCmd) NeedsAuth() bool { return true }

func (c *TaskStatsCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&c.doneStatuses, "done-status", []string{defaultDoneStatus}, "status counted as done (repeatable)")
}

func (c *TaskStatsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: task id required")
		return exitcode.UserError
	}

	statuses := c.doneStatuses
	if len(statuses) == 0 {
		statuses = []string{defaultDoneStatus}
	}

	taskID := args[0]
	family, err := svc.GetTaskFamily(ctx, taskID)
	if err != nil {
		return backendFailure(errOut, err)
	}
	if family == nil {
		fmt.Fprintf(errOut, "error: could not find task %s\n", taskID)
		return exitcode.UserError
	}

	tasks := service.Flatten([]service.TaskFamily{*family})
	doneSet := metric.StatusSet(statuses...)
	done := metric.CountDoneTasks(tasks, doneSet)

	var points, donePoints uint64
	for _, t := range tasks {
		if t.Point == nil {
			continue
		}
		points += *t.Point
		if _, ok := doneSet[t.Status]; ok {
			donePoints += *t.Point
		}
	}

	fmt.Fprintf(out, "tasks: %d/%d done\n", done, len(tasks))
	fmt.Fprintf(out, "points: %d/%d done\n", donePoints, points)
	return exitcode.Success
}
