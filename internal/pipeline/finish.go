package pipeline

import (
	"context"
	"log"
	"os"
)

// FinishStep optionally deletes the image's original source folder
// (the one it had before this phase began) and clears folder_path
// (§4.G "Finish: optional deletion of source folder, clears
// image.folder_path").
type FinishStep struct {
	DeleteSource bool
}

func (s *FinishStep) Name() string { return "finish" }

func (s *FinishStep) Run(ctx context.Context, sc *StepContext) (string, error) {
	if s.DeleteSource && sc.OriginalPath != "" {
		if err := os.RemoveAll(sc.OriginalPath); err != nil {
			log.Printf("[pipeline] finish: remove source %s: %v", sc.OriginalPath, err)
		}
	}
	return "", nil
}

func (s *FinishStep) Cleanup(sc *StepContext) {}
