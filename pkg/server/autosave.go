package server

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/chatooli/chatooli/pkg/extract"
	"github.com/chatooli/chatooli/pkg/logger"
	"github.com/chatooli/chatooli/pkg/utils"
)

var titleRe = regexp.MustCompile(`(?i)<title>(.*?)</title>`)

const defaultSketchName = "sketch.html"

// autoSaveHTML persists inline HTML the model returned in its chat
// response when it did not write any workspace files itself. Without
// this, a sketch that only exists in chat text is unreadable on the
// next turn.
func (s *Server) autoSaveHTML(ctx context.Context, blocks []extract.CodeBlock, filesChanged []string) []string {
	if len(filesChanged) > 0 {
		return filesChanged
	}

	for _, block := range blocks {
		if !strings.Contains(block.Code, "<!DOCTYPE") && !strings.Contains(block.Code, "<html") {
			continue
		}

		name := defaultSketchName
		if m := titleRe.FindStringSubmatch(block.Code); m != nil {
			if slug := utils.Slugify(m[1], 40); slug != "" {
				name = slug + ".html"
			}
		}

		abs, err := s.state.Resolve(name)
		if err != nil {
			break
		}
		if err := os.WriteFile(abs, []byte(block.Code), 0o644); err != nil {
			logger.G(ctx).WithError(err).WithField("file", name).Warn("auto-save failed")
			break
		}

		logger.G(ctx).WithField("file", name).Debug("auto-saved inline sketch")
		return []string{name}
	}

	return filesChanged
}
