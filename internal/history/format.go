package history

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Write prints records as a table, or as YAML when format is "yaml".
func Write(w io.Writer, records []Record, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	case "", "table":
		return writeTable(w, records)
	default:
		return fmt.Errorf("unknown output format %q (must be table or yaml)", format)
	}
}

func writeTable(w io.Writer, records []Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No burns recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFINISHED\tLABEL\tRECORDER\tRESULT\tSIZE\tTOOK")
	for _, r := range records {
		result := r.Phase
		if r.Code != 0 {
			result = fmt.Sprintf("%s (%d)", r.Phase, r.Code)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID),
			humanize.Time(r.Finished),
			r.VolumeLabel,
			r.RecorderID,
			result,
			humanize.IBytes(uint64(r.Bytes)),
			r.Duration().Round(time.Second))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
