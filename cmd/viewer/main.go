// Command viewer opens a window onto a small demo scene: a row of PBR cubes over a textured
// ground plane, lit by two point lights, with the ground grid, click-to-select outlines and
// an orbit camera.
//
// Usage:
//
//	viewer [flags] [ground-texture] [model.gltf|model.glb ...]
//
// Models are placed behind the cube row; any other argument replaces the ground texture.
//
// Controls: middle-mouse drag or W/A/S/D orbits, scroll zooms, left click selects,
// G toggles the grid, O toggles the outline, R resets the camera, Esc quits.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/Carmen-Shannon/oxy-shade/engine"
	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/config"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/loader"
	"github.com/Carmen-Shannon/oxy-shade/engine/logger"
	"github.com/Carmen-Shannon/oxy-shade/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/engine/texture"
	"github.com/Carmen-Shannon/oxy-shade/engine/window"
	"github.com/chewxy/math32"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Named("viewer")

	presentMode, err := renderer.ParsePresentMode(cfg.Renderer.PresentMode)
	if err != nil {
		return err
	}
	msaa := renderer.MSAA4x
	if cfg.Renderer.MSAA == 1 {
		msaa = renderer.MSAAOff
	}

	win, err := window.NewWindow(window.WithConfig(cfg.Window))
	if err != nil {
		return err
	}
	width, height := win.Size()
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithMSAA(msaa),
		renderer.WithPresentMode(presentMode),
		renderer.WithPicking(cfg.Renderer.Picking),
		renderer.WithSoftwareAdapter(cfg.Renderer.SoftwareAdapter),
		renderer.WithClearColor(cfg.Renderer.ClearColor...),
		renderer.WithLogger(log.Named("renderer")),
	)
	if err != nil {
		_ = win.Close()
		return fmt.Errorf("renderer: %w", err)
	}
	defer r.Release()

	cc := cfg.Camera
	cam := camera.NewCamera(
		camera.WithLens(camera.Lens{
			FovY:   cc.FovDegrees * math32.Pi / 180,
			Aspect: float32(width) / float32(max(height, 1)),
			Near:   cc.Near,
			Far:    cc.Far,
		}),
		camera.WithController(camera.NewCameraController(
			camera.WithRadius(cc.Distance),
			camera.WithTarget([3]float32(cc.Target)),
			camera.WithSpeeds(cc.OrbitSpeed, cc.MouseSensitivity, cc.ZoomSpeed, cc.PanSpeed),
		)),
	)

	sc, err := scene.NewScene("demo", cam, r, scene.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer sc.Release()

	var groundPath string
	var models []string
	for _, arg := range flag.Args() {
		if loader.IsModelPath(arg) {
			models = append(models, arg)
		} else {
			groundPath = arg
		}
	}
	if err := populate(sc, groundPath); err != nil {
		return err
	}
	if err := placeModels(sc, models); err != nil {
		return err
	}

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithScene(sc),
		engine.WithTickRate(float64(cfg.Renderer.TickRate)),
		engine.WithProfiling(cfg.Logging.Level == "debug"),
	)

	log.Info("viewer started",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("instances", len(sc.Instances())),
		zap.Int("lights", len(sc.Lights())),
	)
	return eng.Run()
}

// populate fills the scene with the demo content. groundPath optionally names an image used
// as the ground texture instead of the generated checkerboard.
func populate(sc scene.Scene, groundPath string) error {
	var ground image.Image
	if groundPath != "" {
		img, err := texture.Load(groundPath)
		if err != nil {
			return err
		}
		ground = img
	} else {
		ground = texture.Checker(256, 32,
			color.RGBA{R: 200, G: 200, B: 200, A: 255},
			color.RGBA{R: 90, G: 90, B: 100, A: 255},
		)
	}
	groundTex, err := sc.AddTexture(ground, texture.SamplerLinearRepeat)
	if err != nil {
		return err
	}

	groundMat := material.NewMaterial(
		material.WithName("ground"),
		material.WithRoughness(0.9),
		material.WithMetallic(0),
		material.WithTexture(material.ChannelAlbedo, groundTex),
	)
	sc.AddMaterial(groundMat)
	sc.AddInstance(mesh.NewInstance(mesh.Plane(20), mesh.WithMaterial(groundMat.ID())))

	// metallic increases left to right, roughness decreases
	const cubes = 5
	cube := mesh.Cube(1)
	for i := range cubes {
		t := float32(i) / (cubes - 1)
		m := material.NewMaterial(
			material.WithName(fmt.Sprintf("cube_%d", i)),
			material.WithAlbedo([4]float32{0.9, 0.25 + 0.5*t, 0.2, 1}),
			material.WithMetallic(t),
			material.WithRoughness(1-0.8*t),
		)
		sc.AddMaterial(m)
		sc.AddInstance(mesh.NewInstance(cube,
			mesh.WithPosition([3]float32{float32(i-cubes/2) * 1.8, 0.5, 0}),
			mesh.WithMaterial(m.ID()),
		))
	}

	glow := material.NewMaterial(
		material.WithName("glow"),
		material.WithAlbedo([4]float32{0.1, 0.1, 0.1, 1}),
		material.WithEmission([3]float32{0.2, 0.6, 1.0}),
	)
	sc.AddMaterial(glow)
	sc.AddInstance(mesh.NewInstance(cube,
		mesh.WithPosition([3]float32{0, 0.25, 2.5}),
		mesh.WithScale([3]float32{0.5, 0.5, 0.5}),
		mesh.WithMaterial(glow.ID()),
	))

	sc.AddLight(light.NewLight(
		light.WithPosition([3]float32{4, 5, 4}),
		light.WithColor([3]float32{1, 0.95, 0.9}),
		light.WithIntensity(40),
		light.WithRange(25),
	))
	sc.AddLight(light.NewLight(
		light.WithPosition([3]float32{-5, 3, -2}),
		light.WithColor([3]float32{0.4, 0.5, 1}),
		light.WithIntensity(15),
		light.WithRange(20),
	))
	return nil
}

// placeModels imports glTF models and lines them up behind the cube row.
func placeModels(sc scene.Scene, paths []string) error {
	l := loader.NewLoader(loader.BackendTypeGLTF)
	for i, path := range paths {
		a, err := l.Load(path)
		if err != nil {
			return err
		}
		x := (float32(i) - float32(len(paths)-1)/2) * 4
		if _, err := l.Instantiate(a, sc, mesh.WithPosition([3]float32{x, 0, -4})); err != nil {
			return err
		}
	}
	return nil
}
