// Package loanboost trains and serves a default-risk classifier for U.S.
// Small Business Administration loans on Amazon SageMaker.
//
// The workflow is split into independent steps, each in its own package
// and exposed as a subcommand of cmd/loanboost:
//
//   - preprocessing: drops identifier columns, reduces NAICS to its sector
//     and removes rows with missing values
//   - training: splits the cleaned table, runs a training job with the
//     built-in XGBoost image and downloads the model archive
//   - tuning: submits a hyperparameter tuning job and reports its trials
//   - deployment: hosts a model archive on a real-time endpoint
//   - inference: sends CSV rows to an endpoint
//
// Steps share no runtime state. The only hand-off between them is a file
// (processed CSV, model archive, training manifest) or the name of a
// SageMaker resource.
//
// # Quick Start
//
//	loanboost preprocess --input data/raw_data.csv --output data/processed_data.csv
//	loanboost train --role arn:aws:iam::123456789012:role/SageMaker --bucket my-bucket
//	loanboost deploy --endpoint-name loan-default
//	loanboost invoke --endpoint-name loan-default --payload-file rows.csv
//
// Every setting can also be given in a YAML or HCL file passed with
// --config.
//
// # Errors and Logging
//
// All packages return errors from pkg/errors, which wraps
// github.com/cockroachdb/errors and carries stack traces. Failed AWS calls
// are reported as *errors.RemoteError and still unwrap to the SDK error.
// Logs are structured JSON written through pkg/log on top of zerolog.
package loanboost
