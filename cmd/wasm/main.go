//go:build js && wasm
// +build js,wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/LyricSync/pkg/lyricsync/align"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorInvalidSegments
)

// alignLyrics(segments, lyrics[, options]) aligns lyrics to a transcript in
// the browser. segments may be a JSON string or an array of {text,start,end}
// objects; options may carry threshold and fallbackSeconds.
// Returns: {error: number, data: array | string}
func alignLyrics(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 arguments: segments, lyrics")
	}

	segmentsJS := args[0]
	lyricsJS := args[1]

	var raw string
	switch segmentsJS.Type() {
	case js.TypeString:
		raw = segmentsJS.String()
	case js.TypeObject:
		raw = js.Global().Get("JSON").Call("stringify", segmentsJS).String()
	default:
		return makeErrorResponse(ErrorInvalidArgs, "segments must be a JSON string or an Array")
	}
	if lyricsJS.Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "lyrics must be a string")
	}

	segments, err := align.DecodeSegments([]byte(raw))
	if err != nil {
		return makeErrorResponse(ErrorInvalidSegments, fmt.Sprintf("Invalid segments: %v", err))
	}

	opts := []align.Option{}
	if len(args) > 2 && args[2].Type() == js.TypeObject {
		if v := args[2].Get("threshold"); v.Type() == js.TypeNumber {
			opts = append(opts, align.WithThreshold(v.Float()))
		}
		if v := args[2].Get("fallbackSeconds"); v.Type() == js.TypeNumber {
			opts = append(opts, align.WithFallbackDuration(v.Float()))
		}
	}

	lines := align.New(opts...).Align(segments, lyricsJS.String())

	lineArray := js.Global().Get("Array").New()
	for i, line := range lines {
		obj := js.Global().Get("Object").New()
		obj.Set("start", line.Start)
		obj.Set("end", line.End)
		obj.Set("text", line.Text)
		lineArray.SetIndex(i, obj)
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", lineArray)
	return result
}

// normalizeLyric exposes the text normalization used for matching.
func normalizeLyric(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 1 string argument")
	}
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", align.Normalize(args[0].String()))
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "🔧 LyricSync WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("alignLyrics", js.FuncOf(alignLyrics))
	js.Global().Set("normalizeLyric", js.FuncOf(normalizeLyric))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "❌ window object is undefined!")
	}

	if !console.IsUndefined() {
		console.Call("log", "✅ LyricSync WASM module loaded and ready")
	}

	<-done
}
