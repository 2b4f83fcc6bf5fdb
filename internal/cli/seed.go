package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/kilupskalvis/talentflow/internal/seed"
	"github.com/spf13/cobra"
)

var (
	seedSeed       int64
	seedJobs       int
	seedCandidates int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset the record store and fill it with demo data",
	Long: `Remove every record from the local store and write demo jobs,
candidates and assessments. The same --seed always produces the same data.`,
	Args: cobra.NoArgs,
	Run:  runSeed,
}

func init() {
	seedCmd.Flags().Int64Var(&seedSeed, "seed", seed.DefaultSeed, "Random seed")
	seedCmd.Flags().IntVar(&seedJobs, "jobs", seed.DefaultJobs, "Number of jobs")
	seedCmd.Flags().IntVar(&seedCandidates, "candidates", seed.DefaultCandidates, "Number of candidates")
}

func runSeed(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	res, err := seed.Run(context.Background(), st, seed.Options{
		Seed:       seedSeed,
		Now:        time.Now().UTC().Truncate(time.Second),
		Jobs:       seedJobs,
		Candidates: seedCandidates,
	})
	if err != nil {
		exitError("failed to seed store: %v", err)
	}

	color.New(color.FgGreen).Print("Seeded ")
	fmt.Printf("%d jobs, %d candidates, %d assessments into %s\n",
		res.Jobs, res.Candidates, res.Assessments, cfg.DatabasePath())
}
