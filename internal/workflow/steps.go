package workflow

import (
	"iter"

	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/render"
)

// PrepareJob yields one rendered step per run line in declared order, rendered in runtimeContext.
// A line is rendered only when the consumer asks for it, so line N+1 is rendered after step N ran.
// A render failure yields a zero Step with the *render.TemplateError.
func PrepareJob(job jobs.Job, configuration jobs.Configuration, runtimeContext jobs.Context, renderer render.Renderer) iter.Seq2[jobs.Step, error] {
	return func(yield func(jobs.Step, error) bool) {
		for _, template := range job.Run() {
			step, renderError := renderer.RenderIn(template, configuration, runtimeContext)
			if !yield(step, renderError) {
				return
			}
		}
	}
}
