package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/notify"
	"github.com/kilupskalvis/talentflow/internal/optimistic"
)

// printOutcome reports how an optimistic mutation resolved.
func printOutcome[V comparable](res optimistic.Result[V], what string) {
	switch res.Outcome {
	case optimistic.OutcomeSkipped:
		color.New(color.FgYellow).Printf("Nothing to do: %s already there\n", what)
	case optimistic.OutcomeConfirmed:
		color.New(color.FgGreen).Printf("Saved: %s\n", what)
	case optimistic.OutcomeRolledBack, optimistic.OutcomeSuperseded:
		color.New(color.FgRed).Printf("Rolled back: %s (%v)\n", what, res.Err)
	}
}

// printNotifications prints the session's notification log, newest first.
func printNotifications(log *notify.Log) {
	items := log.List()
	if len(items) == 0 {
		return
	}
	dim := color.New(color.Faint)
	fmt.Println()
	fmt.Printf("Notifications (%d unread):\n", log.Unread())
	for _, n := range items {
		dim.Printf("  %s ", n.Time.Format("15:04:05"))
		fmt.Println(n.Message)
	}
	log.MarkAllRead()
}

func printPagination(p api.Pagination, noun string) {
	color.New(color.Faint).Printf("page %d of %d, %d %s\n", p.Page, max(p.TotalPages, 1), p.Total, noun)
}

func stageColor(s models.Stage) *color.Color {
	switch s {
	case models.StageHired:
		return color.New(color.FgGreen)
	case models.StageRejected:
		return color.New(color.FgRed)
	case models.StageOffer:
		return color.New(color.FgMagenta)
	case models.StageTech:
		return color.New(color.FgCyan)
	case models.StageScreen:
		return color.New(color.FgBlue)
	}
	return color.New(color.FgYellow)
}

func printJobLine(j *models.Job) {
	status := color.New(color.FgGreen)
	if j.Status == models.JobArchived {
		status = color.New(color.Faint)
	}
	color.New(color.FgYellow).Printf("%3d ", j.Order)
	fmt.Printf("%-8s %-32s ", shortID(j.ID), j.Title)
	status.Printf("%-9s", j.Status)
	if len(j.Tags) > 0 {
		color.New(color.FgCyan).Printf(" [%s]", strings.Join(j.Tags, ", "))
	}
	if j.Location != "" {
		fmt.Printf(" %s", j.Location)
	}
	fmt.Println()
}

func printCandidateLine(c *models.Candidate) {
	fmt.Printf("%-8s %-24s %-32s ", shortID(c.ID), c.Name, c.Email)
	stageColor(c.Stage).Printf("%-10s", c.Stage.Title())
	if c.Referred {
		color.New(color.FgMagenta).Print(" referred")
	}
	fmt.Println()
}

func printEvent(ev *models.TimelineEvent) {
	color.New(color.Faint).Printf("%s ", ev.CreatedAt.Local().Format("2006-01-02 15:04"))
	switch ev.Type {
	case models.EventStageChange:
		fmt.Printf("%s moved from ", ev.Author)
		stageColor(ev.PreviousStage).Print(ev.PreviousStage.Title())
		fmt.Print(" to ")
		stageColor(ev.NewStage).Println(ev.NewStage.Title())
	case models.EventNoteAdded:
		fmt.Printf("%s added a note: %s\n", ev.Author, ev.Note)
	default:
		fmt.Printf("%s %s\n", ev.Author, ev.Type)
	}
}
