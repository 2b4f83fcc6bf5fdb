package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/assessment"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/spf13/cobra"
)

var (
	assessmentsJob    string
	answersFile       string
	submitCandidateID string
)

var assessmentsCmd = &cobra.Command{
	Use:   "assessments",
	Short: "Browse assessments and check or submit answers",
}

var assessmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assessments",
	Args:  cobra.NoArgs,
	Run:   runAssessmentsList,
}

var assessmentsShowCmd = &cobra.Command{
	Use:   "show <assessment-id>",
	Short: "Show an assessment's questions",
	Args:  cobra.ExactArgs(1),
	Run:   runAssessmentsShow,
}

var assessmentsCheckCmd = &cobra.Command{
	Use:   "check <assessment-id>",
	Short: "Validate answers locally without submitting",
	Long: `Validate a JSON file of answers against an assessment. Answers are an
object keyed by question ID:

  {"q1": {"text": "Go"}, "q2": {"choices": ["a", "b"]}, "q3": {"number": 4}}

Questions hidden by conditional logic are not checked.`,
	Args: cobra.ExactArgs(1),
	Run:  runAssessmentsCheck,
}

var assessmentsSubmitCmd = &cobra.Command{
	Use:   "submit <assessment-id>",
	Short: "Submit answers for a candidate",
	Args:  cobra.ExactArgs(1),
	Run:   runAssessmentsSubmit,
}

func init() {
	assessmentsCmd.AddCommand(assessmentsListCmd, assessmentsShowCmd, assessmentsCheckCmd, assessmentsSubmitCmd)

	assessmentsListCmd.Flags().StringVar(&assessmentsJob, "job", "", "Only assessments for this job ID")
	for _, cmd := range []*cobra.Command{assessmentsCheckCmd, assessmentsSubmitCmd} {
		cmd.Flags().StringVarP(&answersFile, "answers", "a", "", "JSON file of answers (required)")
		cmd.MarkFlagRequired("answers")
	}
	assessmentsSubmitCmd.Flags().StringVar(&submitCandidateID, "candidate", "", "Candidate ID (required)")
	assessmentsSubmitCmd.MarkFlagRequired("candidate")
}

func runAssessmentsList(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	list, err := c.Client.ListAssessments(context.Background(), assessmentsJob)
	if err != nil {
		exitError("failed to list assessments: %v", err)
	}
	if len(list) == 0 {
		fmt.Println("No assessments found")
		return
	}
	for _, a := range list {
		n := len(assessment.Questions(a))
		fmt.Printf("%-8s %-40s ", shortID(a.ID), a.Title)
		color.New(color.Faint).Printf("job %s, %d questions\n", shortID(a.JobID), n)
	}
}

func runAssessmentsShow(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	a, err := c.Client.GetAssessment(context.Background(), args[0])
	if err != nil {
		exitError("%v", err)
	}

	color.New(color.Bold).Println(a.Title)
	if a.Description != "" {
		fmt.Println(a.Description)
	}
	for _, sec := range a.Sections {
		fmt.Println()
		color.New(color.FgCyan).Println(sec.Title)
		for _, q := range sec.Questions {
			marker := " "
			if q.Required {
				marker = "*"
			}
			fmt.Printf(" %s %-6s %s ", marker, q.ID, q.Question)
			color.New(color.Faint).Printf("(%s)\n", q.Type)
			if len(q.Options) > 0 {
				color.New(color.Faint).Printf("          %s\n", strings.Join(q.Options, " | "))
			}
			if cl := q.ConditionalLogic; cl != nil && cl.DependsOn != "" {
				color.New(color.Faint).Printf("          shown if %s is %s\n", cl.DependsOn, strings.Join(cl.ShowIf, " or "))
			}
		}
	}
}

func runAssessmentsCheck(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	a, err := c.Client.GetAssessment(context.Background(), args[0])
	if err != nil {
		exitError("%v", err)
	}
	answers := readAnswers(answersFile)

	errs := assessment.Validate(a, answers)
	if len(errs) == 0 {
		color.New(color.FgGreen).Println("All visible answers are valid")
		return
	}
	printFieldErrors(errs)
	os.Exit(1)
}

func runAssessmentsSubmit(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	resp, err := c.Client.SubmitResponse(context.Background(), args[0], &api.SubmitResponseRequest{
		CandidateID: submitCandidateID,
		Responses:   readAnswers(answersFile),
	})
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		printFieldErrors(apiErr.Fields)
		os.Exit(1)
	}
	if err != nil {
		exitError("failed to submit response: %v", err)
	}
	color.New(color.FgGreen).Print("Submitted ")
	fmt.Printf("response %s\n", shortID(resp.ID))
}

func readAnswers(path string) map[string]models.Answer {
	data, err := os.ReadFile(path)
	if err != nil {
		exitError("failed to read answers: %v", err)
	}
	var answers map[string]models.Answer
	if err := json.Unmarshal(data, &answers); err != nil {
		exitError("failed to parse answers: %v", err)
	}
	return answers
}

// printFieldErrors prints per-question messages sorted by question ID.
func printFieldErrors(errs map[string]string) {
	ids := make([]string, 0, len(errs))
	for id := range errs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	red := color.New(color.FgRed)
	for _, id := range ids {
		red.Printf("  %-6s ", id)
		fmt.Println(errs[id])
	}
}
