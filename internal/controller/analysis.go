// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jeranaias/datachat-tui/internal/api"
	"github.com/jeranaias/datachat-tui/internal/transcript"
	"github.com/jeranaias/datachat-tui/internal/util"
)

// =============================================================================
// DATASET ANALYSIS MODE
// =============================================================================

// analysisReadyTemplate announces an attached dataset in the transcript.
const analysisReadyTemplate = `CSV file **%s** is loaded and ready for analysis. You can ask questions like:

- What are the main trends in this data?
- Show me a statistical summary of the dataset
- Create a visualization of the most important columns`

// AttachDataset switches the session into analysis mode. Local files are
// uploaded; http(s) references are registered by URL. A previously attached
// dataset is replaced.
func (c *Controller) AttachDataset(ctx context.Context, source string) error {
	var (
		uploaded *api.UploadCSVResponse
		err      error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		uploaded, err = c.storage.RegisterCSVURL(ctx, source)
		if err != nil {
			return fmt.Errorf("register csv url: %w", err)
		}
		if uploaded.Filename == "" {
			uploaded.Filename = path.Base(source)
		}
	} else {
		uploaded, err = c.storage.UploadCSV(ctx, source)
		if err != nil {
			return fmt.Errorf("upload csv: %w", err)
		}
	}
	c.enterAnalysis(ctx, uploaded.CSVPath, uploaded.Filename)
	return nil
}

// enterAnalysis installs the dataset reference and appends the readiness
// message so the transcript records the mode change.
func (c *Controller) enterAnalysis(ctx context.Context, csvPath, label string) {
	c.router.setDataset(csvPath, label)

	ready := fmt.Sprintf(analysisReadyTemplate, label)
	c.store.Append(transcript.NewLocalAssistantMessage(ready))
	c.notifyChanged()

	c.mu.Lock()
	convID := c.conversationID
	c.mu.Unlock()
	if _, err := c.storage.SaveMessage(ctx, convID, transcript.RoleAssistant.String(), ready, "", nil); err != nil {
		c.logger.Printf("save readiness message: %v", err)
	}
}

// ClearAnalysisMode leaves analysis mode. The chat service's cached session
// is dropped best-effort; local state resets regardless.
func (c *Controller) ClearAnalysisMode(ctx context.Context) {
	c.clearAnalysis(ctx)
	c.notifyChanged()
}

func (c *Controller) clearAnalysis(ctx context.Context) {
	path, _ := c.router.dataset()
	if path == "" {
		return
	}

	c.mu.Lock()
	convID := c.conversationID
	c.mu.Unlock()

	if err := c.chat.ClearAnalysis(ctx, convID); err != nil {
		c.logger.Printf("clear analysis session: %v", err)
	}
	c.router.reset()
}

// =============================================================================
// PLOT EXPORT
// =============================================================================

// ExportPlots decodes every plot in the transcript and writes them to dir
// as PNG files. It returns the written paths. Plots that fail to decode are
// skipped with a log entry.
func (c *Controller) ExportPlots(dir string) ([]string, error) {
	plotsByID := c.store.PlotsByID()
	if len(plotsByID) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot directory: %w", err)
	}

	var written []string
	for id, plots := range plotsByID {
		for i, encoded := range plots {
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				c.logger.Printf("decode plot %s[%d]: %v", id, i, err)
				continue
			}
			name := fmt.Sprintf("plot_%s_%d.png", id, i+1)
			target := filepath.Join(dir, name)
			if err := util.AtomicWriteFile(target, data, 0644); err != nil {
				return written, fmt.Errorf("write plot %s: %w", name, err)
			}
			written = append(written, target)
		}
	}
	return written, nil
}
