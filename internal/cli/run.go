package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querypipe/internal/pipeline"
	"github.com/leapstack-labs/querypipe/internal/rawsql"
	"github.com/leapstack-labs/querypipe/pkg/capture"
	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/drivers"
	"github.com/leapstack-labs/querypipe/pkg/txmanager"
)

// runOptions holds options for the run command.
type runOptions struct {
	File   string
	Format string
}

// newRunCommand creates the run command.
func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a query envelope against the configured backend",
		Long: `Read a JSON query envelope (a single query or a batch wrapper) from a
file or stdin and execute it through the pipeline.`,
		Example: `  # Run a raw query from a file
  querypipe run --file query.json

  # Pipe an envelope in
  echo '{"action":"queryRaw","query":{"arguments":{"query":"SELECT 1 AS n"}}}' | querypipe run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Query envelope file (default stdin)")
	cmd.Flags().StringVar(&opts.Format, "format", "json", "Output format: json or table")

	return cmd
}

func runRun(cmd *cobra.Command, opts *runOptions) error {
	payload, err := readPayload(opts.File, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := context.Background()

	adapter, err := drivers.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	session := capture.NewAdapter(adapter, nil)
	defer func() {
		if _, err := session.Dispose().Unpack(session.Registry()); err != nil {
			logger.Warn("failed to dispose adapter", "error", err)
		}
	}()

	txm := txmanager.New(session, logger)
	exec := pipeline.New(session, rawsql.Compiler{}, rawsql.NewInterpreter(session.Registry()), txm, logger)

	response, err := dispatch(ctx, exec, payload)
	if err != nil {
		return err
	}

	if err := renderResponse(cmd.OutOrStdout(), response, opts.Format); err != nil {
		return err
	}

	if cfg.LogQueries {
		renderQueryLog(cmd.OutOrStdout(), exec.Logs())
	}
	return nil
}

// dispatch routes the payload to single or batch execution based on the
// presence of a "batch" key.
func dispatch(ctx context.Context, exec *pipeline.Executor, payload []byte) (map[string]any, error) {
	var probe struct {
		Batch []json.RawMessage `json:"batch"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("invalid query envelope: %w", err)
	}

	if probe.Batch != nil {
		var batch core.BatchQuery
		if err := json.Unmarshal(payload, &batch); err != nil {
			return nil, fmt.Errorf("invalid batch envelope: %w", err)
		}
		return exec.RunBatch(ctx, batch)
	}

	var query core.JSONQuery
	if err := json.Unmarshal(payload, &query); err != nil {
		return nil, fmt.Errorf("invalid query envelope: %w", err)
	}
	return exec.Run(ctx, query, "")
}

func readPayload(file string, stdin io.Reader) ([]byte, error) {
	if file != "" {
		payload, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read query file: %w", err)
		}
		return payload, nil
	}
	payload, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return payload, nil
}
