package cli

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/talentflow/internal/attachments"
	"github.com/kilupskalvis/talentflow/internal/backend"
	"github.com/spf13/cobra"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete attachments no candidate or response refers to",
	Args:  cobra.NoArgs,
	Run:   runGC,
}

func runGC(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	files, err := attachments.NewFSStore(cfg.AttachmentsPath())
	if err != nil {
		exitError("failed to open attachment store: %v", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), flagLogLevel, flagLogFormat)
	res, err := backend.PruneAttachments(context.Background(), st, files, logger)
	if err != nil {
		exitError("gc failed: %v", err)
	}
	fmt.Printf("Scanned %d attachments, %d referenced, %d deleted\n", res.Scanned, res.Referenced, res.Deleted)
}
