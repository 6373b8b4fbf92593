package glm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/scistat/pkg/log"
)

// logRecorder は最適化の各メジャーイテレーションをDebugレベルで記録する
type logRecorder struct {
	logger log.Logger
}

var _ optimize.Recorder = (*logRecorder)(nil)

func newLogRecorder(logger log.Logger) *logRecorder {
	return &logRecorder{logger: logger}
}

func (r *logRecorder) Init() error {
	return nil
}

func (r *logRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op != optimize.MajorIteration {
		return nil
	}
	args := []any{
		log.IterationKey, stats.MajorIterations,
		log.EvaluationKey, stats.FuncEvaluations,
		log.LossKey, loc.F,
	}
	if len(loc.Gradient) > 0 {
		args = append(args, log.GradNormKey, floats.Norm(loc.Gradient, math.Inf(1)))
	}
	r.logger.Debug("optimizer iteration", args...)
	return nil
}
