package pipeline

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/specialistvlad/llamabuild/internal/unit"
)

// Print writes plan as two tables: the compilation units, then the link
// directives in emission order.
func Print(w io.Writer, plan *Plan) error {
	if _, err := fmt.Fprintf(w, "TARGET %s\n\n", plan.Target); err != nil {
		return err
	}

	var rows [][]string
	if plan.Metal != nil {
		rows = append(rows, []string{StepEmbedMetal, "metal", "-", filepath.Base(plan.Metal.Shader), "-", plan.Metal.Output})
	}
	units := []*unit.Unit{plan.Core}
	if plan.CUDA != nil {
		units = append(units, plan.CUDA)
	}
	units = append(units, plan.Binding)
	for _, u := range units {
		rows = append(rows, []string{
			u.Name,
			u.Language.String(),
			u.Kind.String(),
			baseNames(u.Sources),
			defineNames(u.Defines),
			plan.ArtifactPath(u),
		})
	}
	if plan.Generate != nil {
		rows = append(rows, []string{StepGenerate, "-", "-", strings.Join(plan.Generate.Command, " "), "-", "-"})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"UNIT", "LANG", "KIND", "SOURCES", "DEFINES", "OUTPUT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(rows)
	table.Render()

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	var links [][]string
	for _, d := range append(plan.ArtifactLinks(), plan.BackendLinks()...) {
		links = append(links, []string{d.Name, d.Kind.String(), strings.Join(d.SearchPaths, ",")})
	}
	lt := tablewriter.NewWriter(w)
	lt.SetHeader([]string{"LINK", "KIND", "SEARCH"})
	lt.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	lt.SetAlignment(tablewriter.ALIGN_LEFT)
	lt.SetAutoWrapText(false)
	lt.SetHeaderLine(false)
	lt.SetBorder(false)
	lt.SetNoWhiteSpace(true)
	lt.SetTablePadding("    ")
	lt.AppendBulk(links)
	lt.Render()
	return nil
}

func baseNames(paths []string) string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, " ")
}

func defineNames(ds []unit.Define) string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.String()
	}
	return strings.Join(names, " ")
}
