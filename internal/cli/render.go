// internal/cli/render.go
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dalemusser/mandateidx/config"
	"github.com/dalemusser/mandateidx/internal/indexes"
	"gopkg.in/yaml.v3"
)

// confirmation is printed after a successful ensure.
const confirmation = "Indexes created successfully"

type outcomeView struct {
	Collection string   `json:"collection" yaml:"collection"`
	Index      string   `json:"index" yaml:"index"`
	Keys       string   `json:"keys" yaml:"keys"`
	Unique     bool     `json:"unique" yaml:"unique"`
	Status     string   `json:"status" yaml:"status"`
	DurationMS int64    `json:"duration_ms" yaml:"duration_ms"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
	Duplicates []string `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

type reportView struct {
	Command  string        `json:"command" yaml:"command"`
	Database string        `json:"database" yaml:"database"`
	OK       bool          `json:"ok" yaml:"ok"`
	Indexes  []outcomeView `json:"indexes" yaml:"indexes"`
}

func newReportView(command string, rep *indexes.Report) reportView {
	v := reportView{Command: command, Database: rep.Database, OK: rep.OK()}
	for _, o := range rep.Outcomes {
		ov := outcomeView{
			Collection: o.Spec.Collection,
			Index:      o.Spec.Name,
			Keys:       o.Spec.KeyPattern(),
			Unique:     o.Spec.Unique,
			Status:     string(o.Status),
			DurationMS: o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			ov.Error = o.Err.Error()
		}
		var cv *indexes.ConstraintViolationError
		if errors.As(o.Err, &cv) {
			for _, d := range cv.Duplicates {
				ov.Duplicates = append(ov.Duplicates, d.String())
			}
		}
		v.Indexes = append(v.Indexes, ov)
	}
	return v
}

func renderReport(w io.Writer, format, command string, rep *indexes.Report) error {
	if rep == nil {
		return nil
	}
	v := newReportView(command, rep)
	if format != config.OutputText {
		return encode(w, format, v)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, o := range v.Indexes {
		unique := ""
		if o.Unique {
			unique = "unique"
		}
		fmt.Fprintf(tw, "%s\t%s.%s\t%s\t%s\n", o.Status, o.Collection, o.Index, o.Keys, unique)
		for _, d := range o.Duplicates {
			fmt.Fprintf(tw, "\t  duplicate: %s\t\t\n", d)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !v.OK {
		return nil
	}
	if command == "ensure" {
		fmt.Fprintln(w, confirmation)
	} else {
		fmt.Fprintf(w, "All %d indexes present on %s\n", len(v.Indexes), v.Database)
	}
	return nil
}

type indexView struct {
	Name    string   `json:"name" yaml:"name"`
	Keys    string   `json:"keys" yaml:"keys"`
	Unique  bool     `json:"unique" yaml:"unique"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	Managed bool     `json:"managed" yaml:"managed"`
}

type collectionView struct {
	Collection string      `json:"collection" yaml:"collection"`
	Indexes    []indexView `json:"indexes" yaml:"indexes"`
}

func renderInventory(w io.Writer, format, database string, inv []indexes.CollectionIndexes, specs []indexes.Spec) error {
	managed := make(map[string]bool, len(specs))
	for _, s := range specs {
		managed[s.Collection+"."+s.Name] = true
	}

	views := make([]collectionView, 0, len(inv))
	for _, c := range inv {
		cv := collectionView{Collection: c.Collection, Indexes: []indexView{}}
		for _, i := range c.Indexes {
			cv.Indexes = append(cv.Indexes, indexView{
				Name:    i.Name,
				Keys:    i.KeyPattern(),
				Unique:  i.Unique,
				Options: i.ExtraOptions(),
				Managed: managed[c.Collection+"."+i.Name],
			})
		}
		views = append(views, cv)
	}
	if format != config.OutputText {
		return encode(w, format, map[string]any{"database": database, "collections": views})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range views {
		if len(c.Indexes) == 0 {
			fmt.Fprintf(tw, "%s\t(no indexes)\t\t\n", c.Collection)
			continue
		}
		for _, i := range c.Indexes {
			flags := ""
			if i.Unique {
				flags = "unique"
			}
			for _, o := range i.Options {
				flags += " " + o
			}
			if i.Managed {
				flags += " *"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Collection, i.Name, i.Keys, flags)
		}
	}
	return tw.Flush()
}

func renderDuplicates(w io.Writer, format, database string, dups map[string][]indexes.Duplicate, specs []indexes.Spec) error {
	if format != config.OutputText {
		groups := make(map[string][]string, len(dups))
		for name, d := range dups {
			groups[name] = []string{}
			for _, g := range d {
				groups[name] = append(groups[name], g.String())
			}
		}
		return encode(w, format, map[string]any{"database": database, "duplicates": groups})
	}
	for _, s := range specs {
		d, ok := dups[s.Name]
		if !ok {
			continue
		}
		if len(d) == 0 {
			fmt.Fprintf(w, "%s.%s: no duplicates\n", s.Collection, s.Name)
			continue
		}
		fmt.Fprintf(w, "%s.%s: %d duplicate groups\n", s.Collection, s.Name, len(d))
		for _, g := range d {
			fmt.Fprintf(w, "  %s\n", g)
		}
	}
	return nil
}

func renderPlans(w io.Writer, format, database string, checks []indexes.PlanCheck) error {
	if format != config.OutputText {
		return encode(w, format, map[string]any{"database": database, "plans": checks})
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range checks {
		verdict := "ok"
		if !c.OK {
			verdict = "MISMATCH"
		}
		used := "COLLSCAN"
		if len(c.Used) > 0 {
			used = fmt.Sprint(c.Used)
		}
		fmt.Fprintf(tw, "%s\t%s\texpected %s\tused %s\n", verdict, c.Shape, c.Expected, used)
	}
	return tw.Flush()
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
