// Package pages renders the HTML pages served by the tracking endpoints:
// the credential-capture landing page, the training page shown after a
// submission, and the thank-you page shown after a report.
//
// Pages are Liquid templates. Defaults are compiled into the binary and may
// be overridden per deployment from a directory or an S3 prefix.
package pages

import (
	"context"
	"fmt"
	"sync"

	"github.com/osteele/liquid"
)

// Template names.
const (
	PageSubmission = "submission.html"
	PageTraining   = "training.html"
	PageReported   = "reported.html"
)

// Source loads raw template text by name. A missing template is reported
// with an error wrapping fs.ErrNotExist.
type Source interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// Renderer renders named templates from a Source, caching parsed templates
// for the lifetime of the renderer.
type Renderer struct {
	engine *liquid.Engine
	src    Source
	cache  sync.Map // map[string]*liquid.Template
}

// NewRenderer creates a renderer reading templates from src.
func NewRenderer(src Source) *Renderer {
	return &Renderer{
		engine: liquid.NewEngine(),
		src:    src,
	}
}

// Render executes the named template with vars.
func (r *Renderer) Render(ctx context.Context, name string, vars map[string]any) ([]byte, error) {
	tpl, err := r.template(ctx, name)
	if err != nil {
		return nil, err
	}
	out, rerr := tpl.Render(liquid.Bindings(vars))
	if rerr != nil {
		return nil, fmt.Errorf("render %s: %w", name, rerr)
	}
	return out, nil
}

func (r *Renderer) template(ctx context.Context, name string) (*liquid.Template, error) {
	if cached, ok := r.cache.Load(name); ok {
		return cached.(*liquid.Template), nil
	}

	raw, err := r.src.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", name, err)
	}
	tpl, perr := r.engine.ParseTemplate(raw)
	if perr != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, perr)
	}

	actual, _ := r.cache.LoadOrStore(name, tpl)
	return actual.(*liquid.Template), nil
}
