package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var scanRoot string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one sync cycle and print its outcome",
	Long: `Run a single scan/detect/reconcile cycle against the configured root
(or --root, which must resolve inside FS_SYNC_ALLOWED_ROOT) and print the
outcome as JSON. Exits non-zero when the cycle fails.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanRoot, "root", "", "scan root override")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.store.Close()

	out, runErr := svc.engine.Run(ctx, scanRoot)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	return runErr
}
