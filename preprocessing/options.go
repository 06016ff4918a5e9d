package preprocessing

import "github.com/YuminosukeSato/loanboost/pkg/log"

// Option is a function that configures a Preprocessor
type Option func(*Preprocessor)

// WithDropColumns replaces the set of columns removed from the table
func WithDropColumns(names ...string) Option {
	return func(p *Preprocessor) {
		p.dropColumns = append([]string(nil), names...)
	}
}

// WithCodeColumn sets the column truncated to an integer category code
func WithCodeColumn(name string) Option {
	return func(p *Preprocessor) {
		p.codeColumn = name
	}
}

// WithPrefixWidth sets how many leading characters of the code are kept
func WithPrefixWidth(width int) Option {
	return func(p *Preprocessor) {
		p.prefixWidth = width
	}
}

// WithCodePolicy sets what happens to rows whose code prefix is not an integer
func WithCodePolicy(policy CodePolicy) Option {
	return func(p *Preprocessor) {
		p.policy = policy
	}
}

// WithLogger sets the logger used by Run
func WithLogger(logger log.Logger) Option {
	return func(p *Preprocessor) {
		p.logger = logger
	}
}
