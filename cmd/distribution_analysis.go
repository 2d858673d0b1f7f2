//go:build analysis
// +build analysis

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Mega-Ryan/IBME/IBME"
	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/System"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// saveCoeffs stores the centred entries of the given matrices in dstDir.
func saveCoeffs(dstDir, kind string, ms []matrix.Matrix) error {
	coeffs := make([][]int64, len(ms))
	for i, m := range ms {
		coeffs[i] = m.Centered()
	}
	out := struct {
		Timestamp string    `json:"timestamp"`
		Kind      string    `json:"kind"`
		Coeffs    [][]int64 `json:"coeffs"`
	}{
		Timestamp: time.Now().Format("20060102_150405.000"),
		Kind:      kind,
		Coeffs:    coeffs,
	}
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return err
	}
	fname := filepath.Join(dstDir, fmt.Sprintf("%s_%s.json", kind, out.Timestamp))
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	log.Printf("saved %s coefficients to %s", kind, fname)
	return nil
}

// collectCoeffs reads all coefficient files in dir and returns flattened values.
func collectCoeffs(dir string) ([]float64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var values []float64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var c struct {
			Coeffs [][]int64 `json:"coeffs"`
		}
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		for _, row := range c.Coeffs {
			for _, v := range row {
				values = append(values, float64(v))
			}
		}
	}
	return values, nil
}

// plotHistogram plots the histogram of values and saves it to path.
func plotHistogram(values []float64, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	h, err := plotter.NewHist(plotter.Values(values), 50)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func main() {
	const (
		runs = 5
		dir  = "Read_keys"
	)
	params, err := Parameters.Derive(8, 8, 3329, 4)
	if err != nil {
		log.Fatalf("Derive: %v", err)
	}
	for i := 0; i < runs; i++ {
		log.Printf("Run %d/%d", i+1, runs)
		s, err := ibme.Setup(params)
		if err != nil {
			log.Fatalf("Setup: %v", err)
		}
		sk, err := s.SKGen(i % params.Users)
		if err != nil {
			log.Fatalf("SKGen: %v", err)
		}
		rk, err := s.RKGen((i + 1) % params.Users)
		if err != nil {
			log.Fatalf("RKGen: %v", err)
		}
		if err := saveCoeffs(dir, "sender", []matrix.Matrix{sk.R}); err != nil {
			log.Fatalf("saveCoeffs: %v", err)
		}
		if err := saveCoeffs(dir, "receiver", rk.Nodes[0].Keys); err != nil {
			log.Fatalf("saveCoeffs: %v", err)
		}
	}
	values, err := collectCoeffs(dir)
	if err != nil {
		log.Fatalf("collectCoeffs: %v", err)
	}
	out := filepath.Join(dir, "key_distribution.png")
	if err := plotHistogram(values, "Key Coefficient Distribution", out); err != nil {
		log.Fatalf("plotHistogram: %v", err)
	}
	fmt.Printf("Histogram saved to %s\n", out)
}
