//go:build js && wasm

package main

import (
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-epicycle/epicycle"
	"github.com/cwbudde/algo-epicycle/filter"
	"github.com/cwbudde/algo-epicycle/preset"
	"github.com/cwbudde/algo-epicycle/spectrum"
)

var (
	globalScene   *preset.Scene
	globalSampler *epicycle.Sampler
	globalFilter  *filter.Coefficients
	outputBuffer  []float32
)

func main() {
	// Keep program running
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmLoadScene", js.FuncOf(wasmLoadScene))
	js.Global().Set("wasmTick", js.FuncOf(wasmTick))
	js.Global().Set("wasmPositions", js.FuncOf(wasmPositions))
	js.Global().Set("wasmSignal", js.FuncOf(wasmSignal))
	js.Global().Set("wasmAnalyze", js.FuncOf(wasmAnalyze))
	js.Global().Set("wasmReconstruct", js.FuncOf(wasmReconstruct))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM epicycle module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	scene := preset.DefaultScene()
	if len(args) >= 1 && args[0].Float() > 0 {
		scene.SampleRate = args[0].Float()
	}
	if len(args) >= 2 && args[1].Float() > 0 {
		scene.GraphDuration = args[1].Float()
	}
	if err := useScene(scene); err != nil {
		println("init failed:", err.Error())
		return false
	}
	println("Epicycle initialized at", int(scene.SampleRate), "Hz")
	return true
}

// wasmLoadScene replaces the running scene with a JSON scene document.
func wasmLoadScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return false
	}
	scene, err := preset.ParseJSON([]byte(args[0].String()))
	if err != nil {
		println("scene rejected:", err.Error())
		return false
	}
	if err := useScene(scene); err != nil {
		println("scene rejected:", err.Error())
		return false
	}
	return true
}

func useScene(scene *preset.Scene) error {
	tree, err := scene.Tree()
	if err != nil {
		return err
	}
	sampler, err := epicycle.NewSampler(tree, scene.GraphDuration, scene.SampleRate, scene.Projection)
	if err != nil {
		return err
	}
	var coeffs *filter.Coefficients
	if scene.Filter != nil {
		if coeffs, err = filter.Design(*scene.Filter, scene.SampleRate); err != nil {
			return err
		}
	}
	globalScene, globalSampler, globalFilter = scene, sampler, coeffs
	outputBuffer = make([]float32, sampler.Buffer().Cap())
	return nil
}

func wasmTick(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalSampler == nil {
		return 0
	}
	return globalSampler.Tick(args[0].Float(), args[1].Float())
}

// wasmPositions returns the arm segments at time t as flat
// [startX, startY, endX, endY, ...] numbers.
func wasmPositions(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSampler == nil {
		return nil
	}
	frame := globalSampler.Positions(args[0].Float())
	out := make([]interface{}, 0, 4*len(frame.Positions))
	for _, p := range frame.Positions {
		out = append(out, p.Start.X, p.Start.Y, p.End.X, p.End.Y)
	}
	return js.ValueOf(out)
}

// wasmSignal copies the (optionally filtered) sample buffer into linear
// memory and returns {ptr, len}.
func wasmSignal(this js.Value, args []js.Value) interface{} {
	if globalSampler == nil {
		return nil
	}
	buf := globalSampler.Buffer()
	if globalFilter != nil {
		filtered, err := filter.ApplyBuffer(globalFilter, buf)
		if err != nil {
			println("filter failed:", err.Error())
			return nil
		}
		buf = filtered
	}
	vals := buf.Values()
	n := min(len(vals), len(outputBuffer))
	for i := 0; i < n; i++ {
		outputBuffer[i] = float32(vals[i])
	}
	if n == 0 {
		return js.ValueOf(map[string]interface{}{"ptr": 0, "len": 0})
	}
	ptr := &outputBuffer[0]
	return js.ValueOf(map[string]interface{}{"ptr": int(uintptr(unsafe.Pointer(ptr))), "len": n})
}

func wasmAnalyze(this js.Value, args []js.Value) interface{} {
	res, ok := analyzeBuffer()
	if !ok {
		return nil
	}
	peaks := make([]interface{}, 0, len(res.Peaks))
	for _, p := range res.Peaks {
		peaks = append(peaks, map[string]interface{}{
			"frequency": p.Frequency,
			"amplitude": p.Amplitude,
			"phase":     p.Phase,
			"relative":  p.RelativeAmplitude,
		})
	}
	return js.ValueOf(map[string]interface{}{
		"fundamental": res.Fundamental,
		"thd":         res.THD,
		"dc":          res.DCOffset,
		"binWidth":    res.BinWidth,
		"peaks":       peaks,
	})
}

// wasmReconstruct replaces the running tree with one synthesized from the
// current buffer's spectrum and returns the oscillator count.
func wasmReconstruct(this js.Value, args []js.Value) interface{} {
	res, ok := analyzeBuffer()
	if !ok {
		return 0
	}
	nodes, err := spectrum.Synthesize(res, globalScene.Synth)
	if err != nil || len(nodes) == 0 {
		return 0
	}
	tree, err := epicycle.NewTree(nodes)
	if err != nil {
		println("reconstruct failed:", err.Error())
		return 0
	}
	globalScene.Nodes = nodes
	globalSampler.SetTree(tree)
	return len(nodes)
}

func analyzeBuffer() (*spectrum.Result, bool) {
	if globalSampler == nil {
		return nil, false
	}
	buf := globalSampler.Buffer()
	if globalFilter != nil {
		filtered, err := filter.ApplyBuffer(globalFilter, buf)
		if err != nil {
			return nil, false
		}
		buf = filtered
	}
	res, err := spectrum.Analyze(buf.Values(), buf.SampleRate(), globalScene.Analysis)
	if err != nil {
		println("analyze failed:", err.Error())
		return nil, false
	}
	return res, true
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
