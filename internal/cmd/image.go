package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sectra/slidetap-core/internal/model"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage images",
}

var imageRetryCmd = &cobra.Command{
	Use:   "retry [image-uid...]",
	Short: "Reset failed images to their pre-failure state and re-enqueue on the high-priority queue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := wireApp()
		if err != nil {
			return err
		}
		defer a.Close()

		uids := make([]model.UID, len(args))
		for i, arg := range args {
			uid, err := uuid.Parse(arg)
			if err != nil {
				return fmt.Errorf("invalid image uid %q: %w", arg, err)
			}
			uids[i] = uid
		}
		if err := a.coord.RetryImages(context.Background(), uids); err != nil {
			return err
		}
		fmt.Printf("retried %d image(s)\n", len(uids))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.AddCommand(imageRetryCmd)
}
