package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/view"
	"github.com/spf13/cobra"
)

// allJobs is a page size large enough to hold every job.
const allJobs = 1000

var (
	jobsSearch   string
	jobsStatus   string
	jobsType     string
	jobsLocation string
	jobsTags     []string
	jobsPage     int
	jobsPageSize int
	jobsSort     string

	jobCreateTitle        string
	jobCreateDescription  string
	jobCreateLocation     string
	jobCreateType         string
	jobCreateTags         []string
	jobCreateRequirements []string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List and manage job postings",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	Args:  cobra.NoArgs,
	Run:   runJobsList,
}

var jobsReorderCmd = &cobra.Command{
	Use:   "reorder <job-id> <position>",
	Short: "Move a job to a 1-based position in the list",
	Long: `Move a job to a new position. The list is updated immediately and
rolled back if the backend rejects the change.

Example:
  talentflow jobs reorder 3 1`,
	Args: cobra.ExactArgs(2),
	Run:  runJobsReorder,
}

var jobsArchiveCmd = &cobra.Command{
	Use:   "archive <job-id>",
	Short: "Archive a job",
	Args:  cobra.ExactArgs(1),
	Run:   func(cmd *cobra.Command, args []string) { runJobsSetArchived(args[0], true) },
}

var jobsUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <job-id>",
	Short: "Restore an archived job",
	Args:  cobra.ExactArgs(1),
	Run:   func(cmd *cobra.Command, args []string) { runJobsSetArchived(args[0], false) },
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a job at the end of the list",
	Args:  cobra.NoArgs,
	Run:   runJobsCreate,
}

func init() {
	jobsCmd.AddCommand(jobsListCmd, jobsReorderCmd, jobsArchiveCmd, jobsUnarchiveCmd, jobsCreateCmd)

	f := jobsListCmd.Flags()
	f.StringVarP(&jobsSearch, "search", "s", "", "Search title and tags")
	f.StringVar(&jobsStatus, "status", "", "Filter by status (active|archived)")
	f.StringVar(&jobsType, "type", "", "Filter by type (full-time|part-time|contract)")
	f.StringVar(&jobsLocation, "location", "", "Filter by location")
	f.StringArrayVar(&jobsTags, "tag", nil, "Require a tag, repeat for multiple")
	f.IntVar(&jobsPage, "page", 1, "Page number")
	f.IntVar(&jobsPageSize, "page-size", 10, "Jobs per page")
	f.StringVar(&jobsSort, "sort", "order", "Sort field (order|title|createdAt)")

	cf := jobsCreateCmd.Flags()
	cf.StringVar(&jobCreateTitle, "title", "", "Job title (required)")
	cf.StringVar(&jobCreateDescription, "description", "", "Description")
	cf.StringVar(&jobCreateLocation, "location", "", "Location")
	cf.StringVar(&jobCreateType, "type", "", "Type (full-time|part-time|contract)")
	cf.StringArrayVar(&jobCreateTags, "tag", nil, "Tag, repeat for multiple")
	cf.StringArrayVar(&jobCreateRequirements, "requirement", nil, "Requirement, repeat for multiple")
	jobsCreateCmd.MarkFlagRequired("title")
}

func runJobsList(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	list := view.NewJobList(c.Deps(), api.ListJobsParams{
		Search:   jobsSearch,
		Status:   models.JobStatus(jobsStatus),
		Type:     models.JobType(jobsType),
		Location: jobsLocation,
		Tags:     jobsTags,
		Page:     jobsPage,
		PageSize: jobsPageSize,
		Sort:     jobsSort,
	})
	if err := list.Refresh(context.Background()); err != nil {
		exitError("%v", err)
	}

	jobs := list.Jobs()
	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return
	}
	for i := range jobs {
		printJobLine(&jobs[i])
	}
	printPagination(list.Pagination(), "jobs")
}

func runJobsReorder(cmd *cobra.Command, args []string) {
	position, err := strconv.Atoi(args[1])
	if err != nil || position < 1 {
		exitError("position must be a positive integer, got %q", args[1])
	}

	c := initContext()
	defer c.Close()
	ctx := context.Background()

	list := view.NewJobList(c.Deps(), api.ListJobsParams{PageSize: allJobs})
	if err := list.Refresh(ctx); err != nil {
		exitError("%v", err)
	}
	job, ok := findByID(list.Jobs(), args[0], jobID)
	if !ok {
		exitError("job '%s' not found", args[0])
	}

	pending, err := list.OnReorder(ctx, job.ID, position-1)
	if err != nil {
		exitError("%v", err)
	}
	color.New(color.Faint).Printf("Moving %q to position %d...\n", job.Title, position)

	res := pending.Wait()
	printOutcome(res, fmt.Sprintf("%q at position %d", job.Title, position))
	jobs := list.Jobs()
	for i := range jobs {
		printJobLine(&jobs[i])
	}
	printNotifications(c.Log)
	if res.Err != nil {
		exitError("%v", res.Err)
	}
}

func runJobsSetArchived(id string, archived bool) {
	c := initContext()
	defer c.Close()

	list := view.NewJobList(c.Deps(), api.ListJobsParams{PageSize: allJobs})
	job, err := list.SetArchived(context.Background(), id, archived)
	if err != nil {
		exitError("%v", err)
	}
	printJobLine(job)
}

func runJobsCreate(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	if !c.Session.Current().CanEdit() {
		exitError("%v", view.ErrReadOnly)
	}

	job, err := c.Client.CreateJob(context.Background(), &api.CreateJobRequest{
		Title:        jobCreateTitle,
		Description:  jobCreateDescription,
		Location:     jobCreateLocation,
		Type:         models.JobType(jobCreateType),
		Tags:         jobCreateTags,
		Requirements: jobCreateRequirements,
	})
	if err != nil {
		exitError("failed to create job: %v", err)
	}
	color.New(color.FgGreen).Print("Created ")
	printJobLine(job)
}

// findByID matches an item by ID, or by an ID prefix of at least four
// characters that identifies exactly one item.
func findByID[T any](items []T, id string, key func(T) string) (T, bool) {
	for _, it := range items {
		if key(it) == id {
			return it, true
		}
	}
	var match T
	n := 0
	if len(id) >= 4 {
		for _, it := range items {
			if strings.HasPrefix(key(it), id) {
				match = it
				n++
			}
		}
	}
	return match, n == 1
}

func jobID(j models.Job) string { return j.ID }
