package experiment

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

type envContextKey struct{}

// WithEnv attaches env to ctx for wrapped components rendered below it.
func WithEnv(ctx context.Context, env Env) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, envContextKey{}, env)
}

// EnvFromContext returns the env attached by WithEnv.
func EnvFromContext(ctx context.Context) (Env, bool) {
	if ctx == nil {
		return Env{}, false
	}
	env, ok := ctx.Value(envContextKey{}).(Env)
	return env, ok
}

// Wrap decorates a component constructor so every render resolves exp first
// and hands the resulting Props to the component alongside its own props.
// Without an env in the render context the component sees the experiment as
// disabled.
func Wrap[P any](exp *Experiment, component func(Props, P) templ.Component) func(P) templ.Component {
	return func(props P) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			injected := Props{ExperimentID: exp.ID()}
			if env, ok := EnvFromContext(ctx); ok {
				resolved, err := exp.Resolve(ctx, env)
				if err != nil {
					return fmt.Errorf("%s: %w", exp.DisplayName(fmt.Sprintf("%T", props)), err)
				}
				injected = resolved
			}
			return component(injected, props).Render(ctx, w)
		})
	}
}
