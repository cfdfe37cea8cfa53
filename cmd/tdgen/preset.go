package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/registry"
)

func presetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved requests",
	}

	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := presetRepo().List()
			if err != nil {
				return err
			}

			if format == "json" {
				data, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tROWS\tCOLUMNS\tFORMAT\tOUTPUT")
			for _, p := range list {
				r := p.Request
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", p.ID, r.Name, r.Rows, len(r.Columns), r.File.Format, r.File.Path)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <id|path>",
		Short: "Show a preset as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPreset(args[0])
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(p.Request)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <id|path>",
		Short: "Validate a preset without generating data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPreset(args[0])
			if err != nil {
				return err
			}
			if err := newService().Validate(p.Request); err != nil {
				fmt.Printf("Validation failed: %v\n", err)
				return err
			}
			name := p.Request.Name
			if name == "" {
				name = p.ID
			}
			fmt.Printf("Request '%s' is valid\n", name)
			return nil
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Build a preset interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, req, err := askRequest()
			if err != nil {
				return err
			}
			if err := newService().Validate(req); err != nil {
				return err
			}
			p, err := presetRepo().Save(id, req)
			if err != nil {
				return err
			}
			fmt.Printf("Saved preset %s to %s\n", p.ID, p.Path)
			fmt.Printf("Run it with: tdgen generate --request %s\n", p.ID)
			return nil
		},
	}
}

func askRequest() (string, *domain.GenerationRequest, error) {
	genReg := registry.DefaultGeneratorRegistry()
	fmtReg := registry.DefaultFormatRegistry()

	var answers struct {
		ID      string `survey:"id"`
		Name    string `survey:"name"`
		Rows    string `survey:"rows"`
		Format  string `survey:"format"`
		Output  string `survey:"output"`
		Seed    string `survey:"seed"`
		Columns string `survey:"columns"`
	}

	formats := make([]string, 0)
	for _, f := range fmtReg.Formats() {
		formats = append(formats, string(f))
	}

	qs := []*survey.Question{
		{Name: "id", Prompt: &survey.Input{Message: "Preset ID:"}, Validate: survey.Required},
		{Name: "name", Prompt: &survey.Input{Message: "Request name:"}},
		{Name: "rows", Prompt: &survey.Input{Message: "Rows:", Default: "100"}, Validate: isInt},
		{Name: "format", Prompt: &survey.Select{Message: "Format:", Options: formats, Default: "csv"}},
		{Name: "output", Prompt: &survey.Input{Message: "Output file:", Default: "data"}, Validate: survey.Required},
		{Name: "seed", Prompt: &survey.Input{Message: "Seed (empty for random):"}, Validate: isOptionalInt},
		{Name: "columns", Prompt: &survey.Input{Message: "Number of columns:", Default: "5"}, Validate: isInt},
	}
	if err := survey.Ask(qs, &answers); err != nil {
		return "", nil, err
	}

	rows, _ := strconv.ParseInt(answers.Rows, 10, 64)
	count, _ := strconv.Atoi(answers.Columns)
	req := &domain.GenerationRequest{
		Name: answers.Name,
		Rows: rows,
		File: domain.FileConfig{Format: domain.Format(answers.Format)},
	}
	if w, err := fmtReg.Resolve(req.File.Format); err == nil {
		req.File.Path = withExtension(answers.Output, w.Extension())
	}
	if answers.Seed != "" {
		seed, _ := strconv.ParseInt(answers.Seed, 10, 64)
		req.Seed = &seed
	}

	types := make([]string, 0)
	for _, t := range genReg.Types() {
		types = append(types, string(t))
	}
	for i := 0; i < count; i++ {
		col, err := askColumn(i, types)
		if err != nil {
			return "", nil, err
		}
		req.Columns = append(req.Columns, col)
	}
	return answers.ID, req, nil
}

func askColumn(i int, types []string) (domain.ColumnConfig, error) {
	var col domain.ColumnConfig
	var name, typ string

	if err := survey.AskOne(&survey.Input{
		Message: fmt.Sprintf("Column %d name:", i+1),
		Default: fmt.Sprintf("Column_%d", i+1),
	}, &name, survey.WithValidator(survey.Required)); err != nil {
		return col, err
	}
	if err := survey.AskOne(&survey.Select{
		Message: fmt.Sprintf("Column %d type:", i+1),
		Options: types,
		Default: cycle(defaultColumnTypes, i),
	}, &typ); err != nil {
		return col, err
	}
	col.Name, col.Type = name, domain.DataType(typ)

	switch col.Type {
	case domain.DataTypeInteger, domain.DataTypeFloat:
		var lo, hi string
		if err := survey.AskOne(&survey.Input{Message: "Minimum (empty for default):"}, &lo, survey.WithValidator(isOptionalFloat)); err != nil {
			return col, err
		}
		if err := survey.AskOne(&survey.Input{Message: "Maximum (empty for default):"}, &hi, survey.WithValidator(isOptionalFloat)); err != nil {
			return col, err
		}
		mins, _ := parseOptionalFloats("min", []string{lo})
		maxs, _ := parseOptionalFloats("max", []string{hi})
		col.Params.Min, col.Params.Max = mins[0], maxs[0]
	case domain.DataTypeText:
		var n string
		if err := survey.AskOne(&survey.Input{Message: "Maximum length (empty for default):"}, &n, survey.WithValidator(isOptionalInt)); err != nil {
			return col, err
		}
		lengths, _ := parseOptionalInts("length", []string{n})
		col.Params.Length = lengths[0]
	case domain.DataTypeChoice:
		var values string
		if err := survey.AskOne(&survey.Multiline{Message: "Values, one per line:"}, &values, survey.WithValidator(survey.Required)); err != nil {
			return col, err
		}
		col.Params.Values = splitLines(values)
	}
	return col, nil
}

func isInt(ans interface{}) error {
	if _, err := strconv.ParseInt(fmt.Sprint(ans), 10, 64); err != nil {
		return fmt.Errorf("%q is not a whole number", ans)
	}
	return nil
}

func isOptionalInt(ans interface{}) error {
	if fmt.Sprint(ans) == "" {
		return nil
	}
	return isInt(ans)
}

func isOptionalFloat(ans interface{}) error {
	s := fmt.Sprint(ans)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	return nil
}
