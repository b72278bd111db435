package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"blogd/internal/api"
	"blogd/internal/config"
)

func newImagesCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage stored post images",
	}
	cmd.AddCommand(newImagesGCCmd(cfg, out))
	return cmd
}

func newImagesGCCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var (
		dryRun bool
		apply  bool
		grace  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete image blobs no post references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if apply && dryRun {
				return fmt.Errorf("--apply and --dry-run are mutually exclusive")
			}
			if grace < 0 {
				return fmt.Errorf("--grace must not be negative")
			}

			req := api.ImageGCRequest{DryRun: !apply, GraceSeconds: int(grace / time.Second)}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GCImages(cmd.Context(), req)
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(resp)
				}
				mode := "dry run"
				if !resp.DryRun {
					mode = "applied"
				}
				return writePlain("%s: scanned=%d recent=%d candidates=%d deleted=%d failed=%d reclaimed_bytes=%d\n",
					mode, resp.Scanned, resp.SkippedRecent, resp.CandidateCount, resp.DeletedCount, resp.FailedCount, resp.ReclaimedBytes)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted (default)")
	cmd.Flags().BoolVar(&apply, "apply", false, "delete unreferenced blobs")
	cmd.Flags().DurationVar(&grace, "grace", 0, "skip blobs written more recently than this (default: server setting)")
	return cmd
}
