package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/docxfill"
	"github.com/allanpk716/pptx_replacer/internal/processor"
	"github.com/allanpk716/pptx_replacer/internal/templates"
)

func newPlaceholdersCmd() *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "placeholders <template>",
		Short: "列出模板中的 {{key}} 占位符",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, positional []string) error {
			path := positional[0]

			var (
				keys []string
				err  error
			)
			if strings.EqualFold(filepath.Ext(path), ".docx") {
				var data []byte
				data, err = os.ReadFile(path)
				if err != nil {
					return errors.Errorf("读取模板失败: %w", err)
				}
				keys, err = docxfill.Placeholders(data)
			} else {
				reader := processor.NewReaderService(templates.NewDirStore(filepath.Dir(path)))
				keys, err = reader.TemplatePlaceholders(c.Context(), filepath.Base(path))
			}
			if err != nil {
				return err
			}

			out := c.OutOrStdout()
			if asJSON {
				if keys == nil {
					keys = []string{}
				}
				return json.NewEncoder(out).Encode(keys)
			}
			for _, key := range keys {
				fmt.Fprintln(out, key)
			}
			return nil
		},
	}

	c.Flags().BoolVar(&asJSON, "json", false, "以 JSON 数组输出")
	return c
}
