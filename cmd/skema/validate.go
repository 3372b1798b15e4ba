package main

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	j "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reoring/skema"
	"github.com/reoring/skema/loader"
)

func (c *cli) validateCmd() *cobra.Command {
	var schemaID string
	cmd := &cobra.Command{
		Use:   "validate --schema <id> <file>...",
		Short: "Validate JSON or YAML data files against a registered schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			v, err := c.start(cmd.Context(), cfg, c.logger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			if _, ok := v.Registry().Lookup(schemaID); !ok {
				return fmt.Errorf("schema %q is not registered", schemaID)
			}

			failed := 0
			for _, path := range args {
				if !c.validateFile(v, schemaID, path, cmd.OutOrStdout()) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) invalid", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&schemaID, "schema", "s", "", "registry key of the schema")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func (c *cli) validateFile(v *skema.Validator, schemaID, path string, out io.Writer) bool {
	data, err := readData(c.fs, path)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", path, err)
		return false
	}
	res := v.TryValidateWith(skema.ID(schemaID), &data)
	if res.OK {
		fmt.Fprintf(out, "%s: ok\n", path)
		return true
	}
	fmt.Fprintf(out, "%s: invalid\n", path)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %s\n", e.Error())
	}
	return false
}

// readData decodes a JSON or YAML data file. Unlike schema files, any JSON
// value is accepted.
func readData(fs afero.Fs, path string) (any, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var data any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return loader.Normalize(data), nil
	default:
		dec := j.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return data, nil
	}
}
