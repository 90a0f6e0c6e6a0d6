package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
	"github.com/patchctl-dev/patchctl/internal/config"
	"github.com/patchctl-dev/patchctl/internal/report"
)

func newConfigCommand(opts *report.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read/write patchctl configuration values",
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "config get", func(rc *runContext) (*report.Payload, error) {
				key, err := normalizeConfigKey(args[0])
				if err != nil {
					return nil, err
				}
				store, err := config.Open()
				if err != nil {
					return nil, err
				}
				value, err := store.Get(key)
				if err != nil {
					return nil, err
				}
				return &report.Payload{
					Message:    fmt.Sprintf("config %s retrieved", key),
					Changes:    map[string]any{key: value},
					Data:       map[string]any{"key": key, "value": value},
					DataSchema: "patchctl.cli.config_get.data.v1",
				}, nil
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, "config set", func(rc *runContext) (*report.Payload, error) {
				key, err := normalizeConfigKey(args[0])
				if err != nil {
					return nil, err
				}
				store, err := config.Open()
				if err != nil {
					return nil, err
				}
				updated, err := store.Set(key, args[1])
				if err != nil {
					return nil, err
				}
				return &report.Payload{
					Message:    fmt.Sprintf("config %s updated", key),
					Changes:    map[string]any{key: updated},
					Data:       map[string]any{"key": key, "value": updated},
					DataSchema: "patchctl.cli.config_set.data.v1",
				}, nil
			})
		},
	}

	cmd.AddCommand(getCmd, setCmd)
	return cmd
}

func normalizeConfigKey(raw string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range config.Keys() {
		if key == known {
			return key, nil
		}
	}
	return "", cmderr.Usagef("unsupported config key: %s", raw)
}
