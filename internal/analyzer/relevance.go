package analyzer

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// DefaultMinScore is the lowest score a file can have and still be considered relevant
const DefaultMinScore = 0.3

// Options configures an Analyzer
type Options struct {
	MinScore float64
	Walk     WalkOptions
}

// Analyzer ranks the files of a project by their relevance to a bug description
type Analyzer struct {
	opts   Options
	logger *zap.Logger
}

// New creates an Analyzer. A nil logger disables logging
func New(opts Options, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Walk.Extensions == nil && opts.Walk.ExcludeDirs == nil {
		opts.Walk = DefaultWalkOptions()
	}
	return &Analyzer{
		opts:   opts,
		logger: logger.Named("analyzer"),
	}
}

// FindRelevantFiles scores every candidate file under root and returns those scoring at least the configured minimum,
// in descending order of score. Files with equal scores keep their traversal order. Unreadable files are logged and
// treated as irrelevant
func (a *Analyzer) FindRelevantFiles(ctx context.Context, root string, description string) ([]FileScore, error) {
	var relevant []FileScore

	err := Walk(root, a.opts.Walk, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		fileScore := ScoreFile(path, description)
		if fileScore.Skipped() {
			a.logger.Debug("Skipping file",
				zap.String("path", path),
				zap.Stringer("reason", fileScore.Skip),
				zap.Error(fileScore.Err),
			)
			return nil
		}

		if fileScore.Score >= a.opts.MinScore {
			relevant = append(relevant, fileScore)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Score > relevant[j].Score
	})
	return relevant, nil
}
