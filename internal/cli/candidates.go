package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/view"
	"github.com/spf13/cobra"
)

var (
	candidatesSearch   string
	candidatesStage    string
	candidatesJob      string
	candidatesPage     int
	candidatesPageSize int

	boardJob    string
	boardSearch string
	boardLimit  int

	moveJob string
)

var candidatesCmd = &cobra.Command{
	Use:     "candidates",
	Aliases: []string{"cand"},
	Short:   "Browse candidates and move them through the pipeline",
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates",
	Args:  cobra.NoArgs,
	Run:   runCandidatesList,
}

var candidatesBoardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show candidates grouped by stage",
	Args:  cobra.NoArgs,
	Run:   runCandidatesBoard,
}

var candidatesMoveCmd = &cobra.Command{
	Use:   "move <candidate-id> <stage>",
	Short: "Move a candidate to another stage",
	Long: `Move a candidate to another pipeline stage. The board is updated
immediately and rolled back if the backend rejects the change.

Stages: applied, screen, tech, offer, hired, rejected

Example:
  talentflow candidates move 7f3a9c12 tech`,
	Args: cobra.ExactArgs(2),
	Run:  runCandidatesMove,
}

var candidatesShowCmd = &cobra.Command{
	Use:   "show <candidate-id>",
	Short: "Show a candidate profile with notes and timeline",
	Args:  cobra.ExactArgs(1),
	Run:   runCandidatesShow,
}

var candidatesTimelineCmd = &cobra.Command{
	Use:   "timeline <candidate-id>",
	Short: "Show a candidate's timeline",
	Args:  cobra.ExactArgs(1),
	Run:   runCandidatesTimeline,
}

var candidatesNoteCmd = &cobra.Command{
	Use:   "note <candidate-id> <text>...",
	Short: "Add a note to a candidate; @name mentions are recorded",
	Args:  cobra.MinimumNArgs(2),
	Run:   runCandidatesNote,
}

var candidatesResumeCmd = &cobra.Command{
	Use:   "resume <candidate-id> <file>",
	Short: "Upload a resume for a candidate",
	Args:  cobra.ExactArgs(2),
	Run:   runCandidatesResume,
}

func init() {
	candidatesCmd.AddCommand(candidatesListCmd, candidatesBoardCmd, candidatesMoveCmd,
		candidatesShowCmd, candidatesTimelineCmd, candidatesNoteCmd, candidatesResumeCmd)

	f := candidatesListCmd.Flags()
	f.StringVarP(&candidatesSearch, "search", "s", "", "Search name and email")
	f.StringVar(&candidatesStage, "stage", "", "Filter by stage")
	f.StringVar(&candidatesJob, "job", "", "Filter by job ID")
	f.IntVar(&candidatesPage, "page", 1, "Page number")
	f.IntVar(&candidatesPageSize, "page-size", 20, "Candidates per page")

	bf := candidatesBoardCmd.Flags()
	bf.StringVar(&boardJob, "job", "", "Only candidates for this job ID")
	bf.StringVarP(&boardSearch, "search", "s", "", "Filter by name or email")
	bf.IntVar(&boardLimit, "limit", 5, "Candidates shown per column (0 shows all)")

	candidatesMoveCmd.Flags().StringVar(&moveJob, "job", "", "Load only this job's candidates")
}

func candidateID(c models.Candidate) string { return c.ID }

func runCandidatesList(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	stage := models.Stage(candidatesStage)
	if stage != "" && !stage.Valid() {
		exitError("unknown stage '%s'", candidatesStage)
	}
	page, err := c.Client.ListCandidates(context.Background(), &api.ListCandidatesParams{
		Search:   candidatesSearch,
		Stage:    stage,
		JobID:    candidatesJob,
		Page:     candidatesPage,
		PageSize: candidatesPageSize,
	})
	if err != nil {
		exitError("failed to list candidates: %v", err)
	}
	if len(page.Data) == 0 {
		fmt.Println("No candidates found")
		return
	}
	for _, cand := range page.Data {
		printCandidateLine(cand)
	}
	printPagination(page.Pagination, "candidates")
}

func runCandidatesBoard(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	board := view.NewBoard(c.Deps(), boardJob)
	if err := board.Refresh(context.Background()); err != nil {
		exitError("%v", err)
	}
	board.Search(boardSearch)

	for _, col := range board.Columns() {
		stageColor(col.Stage).Printf("%s ", col.Stage.Title())
		color.New(color.Faint).Printf("(%d)\n", len(col.Candidates))
		for i := range col.Candidates {
			if boardLimit > 0 && i == boardLimit {
				color.New(color.Faint).Printf("  ... %d more\n", len(col.Candidates)-boardLimit)
				break
			}
			fmt.Print("  ")
			printCandidateLine(&col.Candidates[i])
		}
	}
}

func runCandidatesMove(cmd *cobra.Command, args []string) {
	stage := models.Stage(strings.ToLower(args[1]))
	if !stage.Valid() {
		exitError("unknown stage '%s'", args[1])
	}

	c := initContext()
	defer c.Close()
	ctx := context.Background()

	board := view.NewBoard(c.Deps(), moveJob)
	if err := board.Refresh(ctx); err != nil {
		exitError("%v", err)
	}
	var all []models.Candidate
	for _, col := range board.Columns() {
		all = append(all, col.Candidates...)
	}
	cand, ok := findByID(all, args[0], candidateID)
	if !ok {
		exitError("candidate '%s' not found", args[0])
	}

	pending, err := board.OnMove(ctx, cand.ID, stage)
	if err != nil {
		exitError("%v", err)
	}
	color.New(color.Faint).Printf("Moving %s from %s to %s...\n", cand.Name, cand.Stage.Title(), stage.Title())

	res := pending.Wait()
	printOutcome(res, fmt.Sprintf("%s in %s", cand.Name, stage.Title()))
	if now, ok := board.Candidate(cand.ID); ok {
		printCandidateLine(&now)
	}
	printNotifications(c.Log)
	if res.Err != nil {
		exitError("%v", res.Err)
	}
}

func runCandidatesShow(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	p, err := view.LoadProfile(context.Background(), c.Client, args[0])
	if err != nil {
		exitError("%v", err)
	}
	cand := p.Candidate

	color.New(color.Bold).Println(cand.Name)
	fmt.Printf("ID:      %s\n", cand.ID)
	fmt.Printf("Email:   %s\n", cand.Email)
	if cand.Phone != "" {
		fmt.Printf("Phone:   %s\n", cand.Phone)
	}
	fmt.Print("Stage:   ")
	stageColor(cand.Stage).Println(cand.Stage.Title())
	fmt.Printf("Job:     %s\n", cand.JobID)
	if cand.Referred {
		fmt.Printf("Referred by %s\n", cand.ReferredBy)
	}
	if cand.Resume != "" {
		fmt.Printf("Resume:  %s\n", shortID(cand.Resume))
	}

	if len(cand.Notes) > 0 {
		fmt.Println()
		fmt.Println("Notes:")
		for _, n := range cand.Notes {
			color.New(color.Faint).Printf("  %s ", n.CreatedAt.Local().Format("2006-01-02 15:04"))
			fmt.Printf("%s: %s\n", n.Author, n.Content)
		}
	}

	fmt.Println()
	fmt.Println("Timeline:")
	for _, ev := range p.Timeline {
		fmt.Print("  ")
		printEvent(ev)
	}
}

func runCandidatesTimeline(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	events, err := c.Client.GetTimeline(context.Background(), args[0])
	if err != nil {
		exitError("failed to load timeline: %v", err)
	}
	if len(events) == 0 {
		fmt.Println("No events")
		return
	}
	for _, ev := range events {
		printEvent(ev)
	}
}

func runCandidatesNote(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	acct := c.Session.Current()
	if !acct.CanEdit() {
		exitError("%v", view.ErrReadOnly)
	}

	cand, err := c.Client.AddNote(context.Background(), args[0], &api.AddNoteRequest{
		Content: strings.Join(args[1:], " "),
		Author:  acct.Name,
	})
	if err != nil {
		exitError("failed to add note: %v", err)
	}
	n := cand.Notes[len(cand.Notes)-1]
	color.New(color.FgGreen).Print("Added note ")
	fmt.Printf("to %s\n", cand.Name)
	if len(n.Mentions) > 0 {
		color.New(color.FgCyan).Printf("Mentioned: @%s\n", strings.Join(n.Mentions, ", @"))
	}
}

func runCandidatesResume(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	if !c.Session.Current().CanEdit() {
		exitError("%v", view.ErrReadOnly)
	}

	f, err := os.Open(args[1])
	if err != nil {
		exitError("failed to open resume: %v", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(args[1]))
	cand, err := c.Client.UploadResume(context.Background(), args[0], f, contentType)
	if err != nil {
		exitError("failed to upload resume: %v", err)
	}
	color.New(color.FgGreen).Print("Uploaded resume ")
	fmt.Printf("%s for %s\n", shortID(cand.Resume), cand.Name)
}
