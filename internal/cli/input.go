package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/mcf/internal/domain/eventtable"
)

// Input file errors.
var (
	ErrUnknownInputFormat = errors.New("unknown input format")
	ErrBadInput           = errors.New("malformed input")
)

// inputColumns are the CSV header names, in canonical order.
var inputColumns = []string{"time1", "time2", "id", "event"}

// row is one record of the YAML/JSON rows form.
type row struct {
	Time1 float64 `yaml:"time1"`
	Time2 float64 `yaml:"time2"`
	ID    uint64  `yaml:"id"`
	Event float64 `yaml:"event"`
}

// document is a YAML or JSON input file: either a rows list or the four
// parallel arrays.
type document struct {
	Rows             []row `yaml:"rows"`
	eventtable.Input `yaml:",inline"`
}

// ReadInputFile reads an event table from path. The format follows the
// extension: .csv, or .yaml/.yml/.json. "-" reads CSV from stdin.
func ReadInputFile(path string, stdin io.Reader) (eventtable.Input, error) {
	if path == "-" {
		return ReadCSV(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return eventtable.Input{}, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".yaml", ".yml", ".json":
		return ReadYAML(f)
	default:
		return eventtable.Input{}, fmt.Errorf("%w: %s", ErrUnknownInputFormat, filepath.Ext(path))
	}
}

// ReadCSV reads a CSV file with a time1,time2,id,event header. Columns may
// appear in any order; extra columns are ignored.
func ReadCSV(r io.Reader) (eventtable.Input, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return eventtable.Input{}, fmt.Errorf("%w: reading header: %w", ErrBadInput, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cols := make([]int, len(inputColumns))
	for i, name := range inputColumns {
		c, ok := index[name]
		if !ok {
			return eventtable.Input{}, fmt.Errorf("%w: missing column %q", ErrBadInput, name)
		}
		cols[i] = c
	}

	var in eventtable.Input
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return in, nil
		}
		if err != nil {
			return eventtable.Input{}, fmt.Errorf("%w: %w", ErrBadInput, err)
		}
		var vals [3]float64
		for i, c := range []int{cols[0], cols[1], cols[3]} {
			if vals[i], err = strconv.ParseFloat(strings.TrimSpace(rec[c]), 64); err != nil {
				return eventtable.Input{}, fmt.Errorf("%w: line %d: %s: %w", ErrBadInput, line, header[c], err)
			}
		}
		id, err := strconv.ParseUint(strings.TrimSpace(rec[cols[2]]), 10, 64)
		if err != nil {
			return eventtable.Input{}, fmt.Errorf("%w: line %d: id: %w", ErrBadInput, line, err)
		}
		in.Time1 = append(in.Time1, vals[0])
		in.Time2 = append(in.Time2, vals[1])
		in.ID = append(in.ID, id)
		in.Event = append(in.Event, vals[2])
	}
}

// ReadYAML reads a YAML or JSON document holding either a rows list or
// parallel time1/time2/id/event arrays.
func ReadYAML(r io.Reader) (eventtable.Input, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return eventtable.Input{}, fmt.Errorf("%w: %w", ErrBadInput, err)
	}
	if len(doc.Rows) == 0 {
		return doc.Input, nil
	}
	if len(doc.Time1)+len(doc.Time2)+len(doc.ID)+len(doc.Event) > 0 {
		return eventtable.Input{}, fmt.Errorf("%w: rows and column arrays are exclusive", ErrBadInput)
	}
	in := eventtable.Input{
		Time1: make([]float64, len(doc.Rows)),
		Time2: make([]float64, len(doc.Rows)),
		ID:    make([]uint64, len(doc.Rows)),
		Event: make([]float64, len(doc.Rows)),
	}
	for i, rw := range doc.Rows {
		in.Time1[i], in.Time2[i], in.ID[i], in.Event[i] = rw.Time1, rw.Time2, rw.ID, rw.Event
	}
	return in, nil
}

// WriteCSV writes in as CSV with the canonical header.
func WriteCSV(w io.Writer, in eventtable.Input) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(inputColumns); err != nil {
		return err
	}
	for i := range in.Time1 {
		rec := []string{
			formatFloat(in.Time1[i]),
			formatFloat(in.Time2[i]),
			strconv.FormatUint(in.ID[i], 10),
			formatFloat(in.Event[i]),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteYAML writes in in the rows form.
func WriteYAML(w io.Writer, in eventtable.Input) error {
	doc := struct {
		Rows []row `yaml:"rows"`
	}{Rows: make([]row, len(in.Time1))}
	for i := range in.Time1 {
		doc.Rows[i] = row{Time1: in.Time1[i], Time2: in.Time2[i], ID: in.ID[i], Event: in.Event[i]}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
