package main

import (
	"io"
	"os"

	"github.com/YuminosukeSato/loanboost/config"
	"github.com/YuminosukeSato/loanboost/inference"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *app) invokeCmd(d *config.Config) *cobra.Command {
	var payload, payloadFile string
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Score CSV rows with a deployed endpoint",
		Long: `Sends the payload to the endpoint once as text/csv and writes the response
body to standard output unchanged. The payload comes from --payload, from
--payload-file, or from standard input when --payload-file is "-".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			setString(cmd.Flags(), "endpoint-name", &cfg.EndpointName)

			body, err := readPayload(cmd, payload, payloadFile)
			if err != nil {
				return err
			}
			r, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			out, err := inference.NewClient(r.Runtime).Invoke(cmd.Context(), cfg.EndpointName, body)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	fs := cmd.Flags()
	fs.String("endpoint-name", d.EndpointName, "endpoint to invoke")
	fs.StringVar(&payload, "payload", "", "CSV rows to score")
	fs.StringVar(&payloadFile, "payload-file", "", `file holding the CSV rows, "-" for standard input`)
	cmd.MarkFlagsMutuallyExclusive("payload", "payload-file")
	cmd.MarkFlagsOneRequired("payload", "payload-file")
	return cmd
}

func readPayload(cmd *cobra.Command, payload, file string) ([]byte, error) {
	switch file {
	case "":
		return []byte(payload), nil
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "read payload from stdin")
	default:
		data, err := os.ReadFile(file)
		return data, errors.Wrapf(err, "read payload %s", file)
	}
}
