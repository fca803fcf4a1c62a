package tracing

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVTransitionWriter dumps the counts of a TransitionCounter into a CSV
// file when the program exits.
type CSVTransitionWriter struct {
	path    string
	counter *TransitionCounter
}

// NewCSVTransitionWriter creates a new CSVTransitionWriter. A random file
// name is used if the path is empty.
func NewCSVTransitionWriter(
	path string,
	counter *TransitionCounter,
) *CSVTransitionWriter {
	if path == "" {
		path = "msisim_transitions_" + xid.New().String() + ".csv"
	}

	return &CSVTransitionWriter{
		path:    path,
		counter: counter,
	}
}

// Path returns the file the counts are written to.
func (w *CSVTransitionWriter) Path() string {
	return w.path
}

// Init makes sure the file does not exist yet and registers the dump to run
// at exit.
func (w *CSVTransitionWriter) Init() error {
	if _, err := os.Stat(w.path); err == nil {
		return fmt.Errorf("file %s already exists", w.path)
	}

	atexit.Register(func() {
		if err := w.Write(); err != nil {
			panic(err)
		}
	})

	return nil
}

// Write writes the current counts into the file.
func (w *CSVTransitionWriter) Write() error {
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", w.path, err)
	}
	defer file.Close()

	out := csv.NewWriter(file)

	if err := out.Write([]string{"Controller", "From", "Event", "To", "Count"}); err != nil {
		return err
	}

	for _, row := range w.counter.AllCounts() {
		err := out.Write([]string{
			row.Controller,
			row.From,
			row.Event.String(),
			row.To,
			strconv.FormatUint(row.Count, 10),
		})
		if err != nil {
			return err
		}
	}

	out.Flush()

	return out.Error()
}
