package strategy

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"culturegateway/internal/config"
	"culturegateway/pkg/logger"
)

// Resolver evaluates configured routing rules against a request's attributes
// and returns the name of the chain to use, or an empty string to yield to the
// operation's static default chain.
type Resolver struct {
	rules []compiledRule
}

// compiledRule caches the byte code of the parsed condition
type compiledRule struct {
	program *vm.Program
	chain   string
}

// NewResolver compiles the configured rules once at startup. Rules that fail
// to compile are logged and skipped rather than failing the process.
func NewResolver(rules []config.RouteRule) *Resolver {
	var compiled []compiledRule
	for _, rule := range rules {
		program, err := expr.Compile(rule.Condition, expr.AllowUndefinedVariables())
		if err != nil {
			logger.Warn("failed to compile routing rule, skipping", "condition", rule.Condition, "error", err)
			continue
		}
		compiled = append(compiled, compiledRule{program: program, chain: rule.Chain})
	}
	return &Resolver{rules: compiled}
}

// Resolve returns the first chain whose condition evaluates to true for env.
// Evaluation errors on a rule fall through to the next rule.
func (r *Resolver) Resolve(env map[string]any) string {
	for _, rule := range r.rules {
		matched, err := expr.Run(rule.program, env)
		if err != nil {
			continue
		}
		if b, ok := matched.(bool); ok && b {
			return rule.chain
		}
	}
	return ""
}
