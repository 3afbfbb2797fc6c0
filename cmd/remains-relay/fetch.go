package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/odl-optics/remains-relay/internal/server"
	"github.com/odl-optics/remains-relay/pkg/departments"
	"github.com/odl-optics/remains-relay/pkg/export"
	"github.com/odl-optics/remains-relay/pkg/pagination"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type fetchOptions struct {
	product    string
	department string
	filter     string
	out        string
	annotate   bool
}

func newFetchCmd(root *rootOptions) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every page for a product once and write the result",
		Example: `  remains-relay fetch --product LENS
  remains-relay fetch --product LENS --department Ленина --out inventory.xlsx
  remains-relay fetch --product FRAME --filter '{"brand":"X"}' --annotate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			payload, err := opts.payload(departments.Default())
			if err != nil {
				return err
			}

			fetcher, cleanup, err := server.BuildFetcher(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := fetcher.Fetch(cmd.Context(), payload)
			if err != nil {
				return err
			}
			log.Info().Int("records", len(result.Records)).Str("product", payload.Product).Msg("Fetch complete")

			return opts.write(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&opts.product, "product", "", "product category to query (required)")
	cmd.Flags().StringVar(&opts.department, "department", "", "department name to filter by")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "filter object as JSON")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "-", "output file; .xlsx writes a spreadsheet, - writes JSON to stdout")
	cmd.Flags().BoolVar(&opts.annotate, "annotate", false, "add department_name to each record")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}

func (o *fetchOptions) payload(table *departments.Table) (pagination.Payload, error) {
	payload := pagination.Payload{Product: o.product}

	if o.filter != "" {
		dec := json.NewDecoder(strings.NewReader(o.filter))
		dec.UseNumber()
		if err := dec.Decode(&payload.Filter); err != nil {
			return payload, fmt.Errorf("parse --filter: %w", err)
		}
	}

	if o.department != "" {
		id, err := table.Lookup(o.department)
		if err != nil {
			return payload, err
		}
		payload = payload.WithDepartment(id)
	}
	return payload, nil
}

func (o *fetchOptions) xlsx() bool {
	return strings.EqualFold(filepath.Ext(o.out), ".xlsx")
}

func (o *fetchOptions) write(stdout io.Writer, result *pagination.Result) error {
	records := result.Records
	if o.annotate || o.xlsx() {
		export.Annotate(records, departments.Default())
	}

	var buf bytes.Buffer
	if o.xlsx() {
		if err := export.WriteXLSX(&buf, records, result.Columns); err != nil {
			return err
		}
	} else {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(records); err != nil {
			return err
		}
	}

	if o.out == "" || o.out == "-" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(o.out, buf.Bytes(), 0o644)
}
