package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/pixkit/atlas"
	"github.com/gogpu/pixkit/backend"
)

// bake packs the sprites of every sheet into one atlas and writes each used
// layer as layer_<n>.png plus manifest.csv into the output directory.
func bake(e *env, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("bake", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "atlas", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("bake: no sprite sheets given")
	}

	dev, err := e.openDevice()
	if err != nil {
		return err
	}
	defer backend.Close(dev)

	a, err := atlas.New(dev, e.cfg.Atlas)
	if err != nil {
		return err
	}
	defer a.Destroy()

	for _, path := range fs.Args() {
		sheet, err := decodeImage(path)
		if err != nil {
			return err
		}
		prefix := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		regions, err := a.AddSheet(sheet, prefix)
		if err != nil {
			return fmt.Errorf("bake %s: %w", path, err)
		}
		fmt.Fprintf(e.stdout, "%s: %d sprites\n", path, len(regions))
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	for layer := range a.Layers() {
		if err := writeFile(filepath.Join(*out, fmt.Sprintf("layer_%d.png", layer)), func(w io.Writer) error {
			return a.WriteLayerPNG(w, layer)
		}); err != nil {
			return err
		}
	}
	if err := writeFile(filepath.Join(*out, "manifest.csv"), a.WriteManifest); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%d regions in %d layers written to %s\n", a.Len(), a.Layers(), *out)
	return nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
