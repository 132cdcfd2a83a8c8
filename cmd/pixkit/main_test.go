package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
)

func writeSheet(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+3] = 255
	}
	red := color.RGBA{R: 255, A: 255}
	for _, r := range []image.Rectangle{image.Rect(2, 2, 10, 12), image.Rect(20, 4, 30, 10)} {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, r.Min.Y, red)
			img.SetRGBA(x, r.Max.Y-1, red)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetRGBA(r.Min.X, y, red)
			img.SetRGBA(r.Max.X-1, y, red)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestBake(t *testing.T) {
	dir := t.TempDir()
	sheet := filepath.Join(dir, "hero.png")
	writeSheet(t, sheet)
	cfgPath := filepath.Join(dir, "pixkit.yaml")
	if err := os.WriteFile(cfgPath, []byte("atlas: {width: 64, height: 64, depth: 2}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-config", cfgPath, "-backend", "software", "bake", "-out", out, sheet}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run(bake) error = %v\nstderr: %s", err, stderr.String())
	}

	manifest, err := os.ReadFile(filepath.Join(out, "manifest.csv"))
	if err != nil {
		t.Fatal(err)
	}
	want := "name,x,y,width,height,layer\nhero_0,0,0,8,10,0\nhero_1,8,0,10,6,0\n"
	if string(manifest) != want {
		t.Errorf("manifest =\n%s\nwant\n%s", manifest, want)
	}
	if _, err := os.Stat(filepath.Join(out, "layer_0.png")); err != nil {
		t.Errorf("layer_0.png: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "layer_1.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("layer_1.png written for an empty layer: %v", err)
	}
	if !strings.Contains(stdout.String(), "2 sprites") {
		t.Errorf("stdout = %q, want sprite count", stdout.String())
	}
}

func TestSimulate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pixkit.yaml")
	cfg := `
particles: {count: 50, seed: 7, bounds: {x1: 64, y1: 48}}
forcefield: {width: 64, height: 48, seed: 7}
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"-config", cfgPath, "-backend", "software", "simulate", "-steps", "10"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run(simulate) error = %v\nstderr: %s", err, stderr.String())
	}

	var got []particleRow
	if err := gocsv.UnmarshalBytes(stdout.Bytes(), &got); err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("rows = %d, want 50", len(got))
	}
	for _, r := range got {
		if r.X < 0 || r.X > 64 || r.Y < 0 || r.Y > 48 {
			t.Errorf("particle %d at (%v,%v) outside bounds", r.Index, r.X, r.Y)
		}
	}

	csvPath := filepath.Join(dir, "particles.csv")
	stdout.Reset()
	err = run([]string{"-config", cfgPath, "-backend", "software", "simulate", "-steps", "2", "-out", csvPath}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run(simulate -out) error = %v\nstderr: %s", err, stderr.String())
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 51 || lines[0] != "index,x,y,vx,vy,r,g,b,a" {
		t.Errorf("csv has %d lines, header %q; want 51 lines with the particle header", len(lines), lines[0])
	}
	if want := "50 particles after 2 steps written to " + csvPath + "\n"; stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"paint"}},
		{"unknown backend", []string{"-backend", "nope", "simulate"}},
		{"bake without sheets", []string{"-backend", "software", "bake"}},
		{"missing config", []string{"-config", "/nonexistent/pixkit.yaml", "config"}},
		{"unwritable csv", []string{"-backend", "software", "simulate", "-steps", "0", "-out", "/nonexistent/dir/particles.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(tt.args, &stdout, &stderr); err == nil {
				t.Errorf("run(%q) error = nil", tt.args)
			}
		})
	}
}

func TestConfigCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"config"}, &stdout, &stderr); err != nil {
		t.Fatalf("run(config) error = %v", err)
	}
	if !strings.Contains(stdout.String(), "particles:") || !strings.Contains(stdout.String(), "kernel: particle.simulate") {
		t.Errorf("config output = %q", stdout.String())
	}
}
