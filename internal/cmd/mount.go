package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sectra/slidetap-core/pkg/export"
)

var mountDebug bool

var mountCmd = &cobra.Command{
	Use:   "mount [project-uid] [mountpoint]",
	Short: "Mount a read-only view of a project's exported outbox",
	Long:  `Mount the dataset -> item-schema -> identifier/pseudonym -> files tree for a completed project's outbox.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runMount,
}

func init() {
	rootCmd.AddCommand(mountCmd)
	mountCmd.Flags().BoolVar(&mountDebug, "debug", false, "log every FUSE callback")
}

func runMount(c *cobra.Command, args []string) error {
	projectUID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid project uid: %w", err)
	}
	mountpoint := args[1]

	a, err := wireApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(mountpoint, 0o755); err != nil {
		return fmt.Errorf("create mountpoint: %w", err)
	}

	projectFS := export.NewProjectFS(a.graph, a.registry, a.fsStorage, projectUID, mountDebug)
	server, err := projectFS.Mount(mountpoint)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nunmounting...")
		server.Unmount()
	}()

	fmt.Printf("project %s mounted read-only at %s. Ctrl+C to unmount.\n", projectUID, mountpoint)
	server.Wait()
	return nil
}
