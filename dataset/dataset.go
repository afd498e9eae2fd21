// Package dataset loads the flight-delay table from Parquet and provides
// the seeded train/validation split used by the trainer.
package dataset

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// Record is one flight in the Parquet schema. Feature columns are numeric;
// ArrDelayBinary is the binary target (1 = arrival delayed).
type Record struct {
	Year              float64 `parquet:"Year"`
	Month             float64 `parquet:"Month"`
	DayOfMonth        float64 `parquet:"DayofMonth"`
	DayOfWeek         float64 `parquet:"DayOfWeek"`
	CRSDepTime        float64 `parquet:"CRSDepTime"`
	CRSArrTime        float64 `parquet:"CRSArrTime"`
	FlightNum         float64 `parquet:"FlightNum"`
	ActualElapsedTime float64 `parquet:"ActualElapsedTime"`
	Distance          float64 `parquet:"Distance"`
	Diverted          float64 `parquet:"Diverted"`
	ArrDelayBinary    float64 `parquet:"ArrDelayBinary"`
}

// NumFeatures is the width of the feature matrix produced by Load.
const NumFeatures = 10

// features returns the record's feature columns in schema order, excluding
// the target.
func (r Record) features() []float64 {
	return []float64{
		r.Year, r.Month, r.DayOfMonth, r.DayOfWeek, r.CRSDepTime,
		r.CRSArrTime, r.FlightNum, r.ActualElapsedTime, r.Distance,
		r.Diverted,
	}
}

// Dataset is an immutable feature matrix with aligned binary labels.
// Splits share the backing rows; nothing mutates them after Load.
type Dataset struct {
	X [][]float64
	Y []int
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.X)
}

// Load reads the full Parquet file at path into memory. Schema mismatches
// and I/O failures propagate to the caller unrecovered.
func Load(path string) (*Dataset, error) {
	rows, err := parquet.ReadFile[Record](path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}

	ds := &Dataset{
		X: make([][]float64, len(rows)),
		Y: make([]int, len(rows)),
	}
	for i, r := range rows {
		ds.X[i] = r.features()
		ds.Y[i] = int(r.ArrDelayBinary)
	}
	return ds, nil
}

// WriteFile writes records to a Parquet file at path. It exists for tests
// and fixture generation.
func WriteFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: create %s: %w", path, err)
	}

	w := parquet.NewGenericWriter[Record](f)
	if _, err := w.Write(records); err != nil {
		f.Close()
		return fmt.Errorf("dataset: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("dataset: close writer %s: %w", path, err)
	}
	return f.Close()
}
