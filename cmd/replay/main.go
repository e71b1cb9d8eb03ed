// Command replay runs the PPE engine over a still image and recorded model
// detections, writing the annotated frame and printing the compliance summary.
package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"ppemonitor/internal/app"
	"ppemonitor/internal/config"
	"ppemonitor/internal/ppe"
	"ppemonitor/internal/service/ai"
)

const (
	flagImage      = "image"
	flagDetections = "detections"
	flagFrame      = "frame"
	flagOut        = "out"
	flagCatalog    = "catalog"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "replay",
		Usage: "run PPE compliance classification over recorded detections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagCatalog,
				Usage:   "class catalog `FILE` (built-in catalog when empty)",
				EnvVars: []string{"CATALOG_PATH"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "annotate",
				Usage: "annotate one image with one recorded frame",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagImage, Aliases: []string{"i"}, Required: true, Usage: "input JPEG or PNG `FILE`"},
					&cli.StringFlag{Name: flagDetections, Aliases: []string{"d"}, Required: true, Usage: "recorded detections JSON `FILE`"},
					&cli.IntFlag{Name: flagFrame, Usage: "index of the recorded frame to use"},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Value: "annotated.jpg", Usage: "output JPEG `FILE`"},
				},
				Action: annotateAction,
			},
			{
				Name:  "validate",
				Usage: "check the class catalog against the names in a recording",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagDetections, Aliases: []string{"d"}, Required: true, Usage: "recorded detections JSON `FILE`"},
				},
				Action: validateAction,
			},
		},
	}
}

func loadInputs(c *cli.Context) (*ppe.ClassCatalog, *ai.Recording, map[int]string, error) {
	catalog, err := app.LoadCatalog(&config.Config{CatalogPath: c.String(flagCatalog)})
	if err != nil {
		return nil, nil, nil, err
	}
	rec, err := ai.LoadRecording(c.String(flagDetections))
	if err != nil {
		return nil, nil, nil, err
	}
	names, err := rec.ClassNames()
	if err != nil {
		return nil, nil, nil, err
	}
	return catalog, rec, names, nil
}

func annotateAction(c *cli.Context) error {
	catalog, rec, names, err := loadInputs(c)
	if err != nil {
		return err
	}

	idx := c.Int(flagFrame)
	if idx < 0 || idx >= len(rec.Frames) {
		return errors.Errorf("frame %d out of range, recording has %d frames", idx, len(rec.Frames))
	}

	frame, err := readImage(c.String(flagImage))
	if err != nil {
		return err
	}

	res, err := replayFrame(catalog, names, frame, rec.Frames[idx])
	if err != nil {
		return err
	}
	if err := writeJPEG(c.String(flagOut), res.Frame); err != nil {
		return err
	}

	out, err := json.Marshal(res.Stats)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

func validateAction(c *cli.Context) error {
	catalog, _, names, err := loadInputs(c)
	if err != nil {
		return err
	}
	if err := catalog.Validate(names); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "catalog matches %d recorded classes\n", len(names))
	return nil
}

func replayFrame(catalog *ppe.ClassCatalog, names map[int]string, frame image.Image, dets []ppe.RawDetection) (ppe.Result, error) {
	engine := ppe.NewEngine(catalog, ppe.WithSourceNames(names))
	res := engine.Process(frame, dets)
	return res, res.Err
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return img, nil
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	return f.Close()
}
