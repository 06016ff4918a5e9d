// Command loanboost runs the loan-default model workflow on SageMaker:
// preprocess, train, tune, deploy, undeploy and invoke.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := errors.SafeExecute("loanboost", func() error {
		return newRootCmd(newAWSRemote).ExecuteContext(ctx)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
