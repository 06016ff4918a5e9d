// Package preprocessing cleans the raw loan table before training.
//
// It removes identifier and administrative columns, reduces the NAICS
// industry code to its two-digit sector, and drops every row that still
// holds a missing value.
package preprocessing

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/loanboost/frame"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
)

// CodePolicy decides how a code whose prefix is not an integer is handled.
type CodePolicy int

const (
	// DropInvalidCodes discards the row and counts it in Result.InvalidCodes.
	DropInvalidCodes CodePolicy = iota
	// StrictCodes aborts with a ParseError on the first invalid code.
	StrictCodes
)

// String returns the policy name used in configuration.
func (p CodePolicy) String() string {
	switch p {
	case StrictCodes:
		return "strict"
	default:
		return "drop"
	}
}

// ParseCodePolicy parses "drop" or "strict".
func ParseCodePolicy(s string) (CodePolicy, error) {
	switch strings.ToLower(s) {
	case "", "drop":
		return DropInvalidCodes, nil
	case "strict":
		return StrictCodes, nil
	default:
		return DropInvalidCodes, errors.NewValidationError("code_policy", "must be drop or strict", s)
	}
}

const (
	// DefaultCodeColumn is the industry classification column.
	DefaultCodeColumn = "NAICS"
	// DefaultPrefixWidth keeps the NAICS sector digits.
	DefaultPrefixWidth = 2
)

// DefaultDropColumns are removed before training.
var DefaultDropColumns = []string{"Selected", "ChgOffDate", "LoanNr_ChkDgt", "Name"}

// Result summarizes one preprocessing run.
type Result struct {
	InputRows      int
	OutputRows     int
	MissingRows    int
	InvalidCodes   int
	DroppedColumns []string
}

// Preprocessor applies the cleaning rules to a table.
type Preprocessor struct {
	dropColumns []string
	codeColumn  string
	prefixWidth int
	policy      CodePolicy
	logger      log.Logger
}

// NewPreprocessor creates a Preprocessor with the default rules.
func NewPreprocessor(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		dropColumns: append([]string(nil), DefaultDropColumns...),
		codeColumn:  DefaultCodeColumn,
		prefixWidth: DefaultPrefixWidth,
		policy:      DropInvalidCodes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Transform returns a cleaned copy of t. Column order is preserved and
// untouched cells keep their original text.
func (p *Preprocessor) Transform(t *frame.Table) (*frame.Table, Result, error) {
	res := Result{InputRows: t.NumRows(), DroppedColumns: p.dropColumns}
	if p.prefixWidth < 1 {
		return nil, res, errors.NewValidationError("prefix_width", "must be at least 1", p.prefixWidth)
	}

	out, err := t.Drop(log.OperationPreprocess, p.dropColumns...)
	if err != nil {
		return nil, res, err
	}

	codeIdx := out.ColumnIndex(p.codeColumn)
	if codeIdx < 0 {
		return nil, res, errors.NewMissingColumnError(log.OperationPreprocess, p.codeColumn)
	}

	kept := out.Rows[:0]
	for r, row := range out.Rows {
		cell := row[codeIdx]
		if frame.IsMissing(cell) {
			// left for DropMissing
			kept = append(kept, row)
			continue
		}
		code, err := sectorCode(cell, p.prefixWidth)
		if err != nil {
			if p.policy == StrictCodes {
				return nil, res, errors.NewParseError(log.OperationPreprocess, r, p.codeColumn, cell, err)
			}
			res.InvalidCodes++
			continue
		}
		row[codeIdx] = strconv.Itoa(code)
		kept = append(kept, row)
	}
	out.Rows = kept

	out, res.MissingRows = out.DropMissing()
	res.OutputRows = out.NumRows()
	return out, res, nil
}

// Run reads inputPath, transforms it and writes the result to outputPath.
func (p *Preprocessor) Run(ctx context.Context, inputPath, outputPath string) (Result, error) {
	logger := p.logger
	if logger == nil {
		logger = log.GetLoggerWithName("preprocessing")
	}
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	tbl, err := frame.ReadFile(inputPath)
	if err != nil {
		return Result{}, err
	}

	out, res, err := p.Transform(tbl)
	if err != nil {
		return res, errors.Wrapf(err, "preprocess %s", inputPath)
	}
	if res.InvalidCodes > 0 {
		errors.Warn(errors.NewDataConversionWarning(p.codeColumn, "string", "int", res.InvalidCodes,
			"prefix is not an integer; rows dropped"))
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := frame.WriteFile(outputPath, out); err != nil {
		return res, err
	}

	logger.Info("Preprocessing completed",
		log.OperationKey, log.OperationPreprocess,
		log.PhaseKey, log.PhasePreprocessing,
		log.PathKey, outputPath,
		log.InputRowsKey, res.InputRows,
		log.OutputRowsKey, res.OutputRows,
		log.DroppedRowsKey, res.MissingRows,
		log.InvalidCodesKey, res.InvalidCodes,
		log.FeaturesKey, out.NumCols(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Preprocess cleans inputPath into outputPath with the given options.
func Preprocess(ctx context.Context, inputPath, outputPath string, opts ...Option) (Result, error) {
	return NewPreprocessor(opts...).Run(ctx, inputPath, outputPath)
}

// sectorCode parses the first width characters of cell as an integer.
// Shorter values are used whole.
func sectorCode(cell string, width int) (int, error) {
	prefix := cell
	if runes := []rune(cell); len(runes) > width {
		prefix = string(runes[:width])
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return 0, errors.New("empty prefix")
	}
	return strconv.Atoi(prefix)
}
