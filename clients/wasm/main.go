//go:build js && wasm

// SignStencil WASM — Client-side renderer.
// Compiled with: GOOS=js GOARCH=wasm go build -o signstencil.wasm ./clients/wasm/
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"strings"
	"sync"
	"syscall/js"

	"github.com/xob0t/signstencil/pkg/colors"
	"github.com/xob0t/signstencil/pkg/generator"
	"github.com/xob0t/signstencil/pkg/render"
	"github.com/xob0t/signstencil/pkg/surface"
	"github.com/xob0t/signstencil/pkg/template"
)

// In-memory photo store, so the host decodes each upload once.
var (
	assetsMu sync.RWMutex
	assets   = make(map[string]image.Image)

	catalogMu sync.RWMutex
	catalog   = template.DefaultCatalog()

	renderer *render.Renderer
)

func main() {
	fonts, err := surface.NewFontManager("")
	if err != nil {
		fmt.Println("SignStencil WASM: fonts:", err)
		return
	}
	renderer = render.New(fonts)
	fmt.Println("SignStencil WASM loaded")

	js.Global().Set("goRenderSign", js.FuncOf(renderSign))
	js.Global().Set("goListTemplates", js.FuncOf(listTemplates))
	js.Global().Set("goAddTemplates", js.FuncOf(addTemplates))
	js.Global().Set("goRegisterAsset", js.FuncOf(registerAsset))
	js.Global().Set("goRemoveAsset", js.FuncOf(removeAsset))
	js.Global().Set("goPalette", js.FuncOf(palette))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

func errorValue(format string, args ...any) js.Value {
	return js.ValueOf("error: " + fmt.Sprintf(format, args...))
}

// decodeB64 decodes a base64 image, with or without a data: URL prefix.
func decodeB64(s string) (image.Image, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	img, _, err := generator.Decode(bytes.NewReader(data))
	return img, err
}

// resolveImage returns a registered asset by id, or decodes ref as base64.
func resolveImage(ref string) (image.Image, error) {
	assetsMu.RLock()
	img, ok := assets[ref]
	assetsMu.RUnlock()
	if ok {
		return img, nil
	}
	return decodeB64(ref)
}

// goRegisterAsset(id, base64Image) — decode and keep a photo in Go memory.
func registerAsset(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return errorValue("need id, base64Image")
	}
	img, err := decodeB64(args[1].String())
	if err != nil {
		return errorValue("%v", err)
	}
	assetsMu.Lock()
	assets[args[0].String()] = img
	assetsMu.Unlock()
	return js.ValueOf("ok")
}

// goRemoveAsset(id) — drop a photo from Go memory.
func removeAsset(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue("need id")
	}
	assetsMu.Lock()
	delete(assets, args[0].String())
	assetsMu.Unlock()
	return js.ValueOf("ok")
}

// goRenderSign(imageB64OrAssetID, templateID, textsJSON, adjustmentsJSON)
// — render and return a base64 PNG.
func renderSign(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return errorValue("need image, templateID, textsJSON[, adjustmentsJSON]")
	}

	img, err := resolveImage(args[0].String())
	if err != nil {
		return errorValue("image: %v", err)
	}

	catalogMu.RLock()
	spec, err := catalog.Get(args[1].String())
	catalogMu.RUnlock()
	if err != nil {
		return errorValue("%v", err)
	}

	var texts template.Texts
	if s := args[2].String(); s != "" {
		if err := json.Unmarshal([]byte(s), &texts); err != nil {
			return errorValue("parse texts: %v", err)
		}
	}
	adj := template.DefaultAdjustments()
	if len(args) > 3 && args[3].Type() == js.TypeString && args[3].String() != "" {
		if err := json.Unmarshal([]byte(args[3].String()), &adj); err != nil {
			return errorValue("parse adjustments: %v", err)
		}
	}

	out, err := renderer.Render(context.Background(), img, spec, texts, adj)
	if err != nil {
		return errorValue("render: %v", err)
	}
	var buf bytes.Buffer
	if err := generator.GenerateToWriter(&buf, ".png", generator.Config{Image: out}); err != nil {
		return errorValue("encode PNG: %v", err)
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(buf.Bytes()))
}

// goListTemplates() — JSON array of the catalog.
func listTemplates(this js.Value, args []js.Value) any {
	catalogMu.RLock()
	specs := catalog.List()
	catalogMu.RUnlock()
	data, err := json.Marshal(specs)
	if err != nil {
		return errorValue("%v", err)
	}
	return js.ValueOf(string(data))
}

// goAddTemplates(text, ext) — parse YAML or JSON templates into the
// catalog. Returns the number added.
func addTemplates(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue("need template text")
	}
	ext := ".yaml"
	if len(args) > 1 {
		ext = "." + strings.TrimPrefix(args[1].String(), ".")
	}
	specs, err := template.ParseSpecs([]byte(args[0].String()), ext)
	if err != nil {
		return errorValue("%v", err)
	}
	catalogMu.Lock()
	for _, s := range specs {
		catalog.Add(s)
	}
	catalogMu.Unlock()
	return js.ValueOf(len(specs))
}

// goPalette(imageB64OrAssetID, k) — dominant colours and auto palette.
func palette(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue("need image")
	}
	img, err := resolveImage(args[0].String())
	if err != nil {
		return errorValue("image: %v", err)
	}
	k := 5
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		k = args[1].Int()
	}
	data, _ := json.Marshal(struct {
		Dominant []colors.RGB   `json:"dominant"`
		Auto     render.Palette `json:"auto"`
	}{
		Dominant: colors.ExtractDominantColors(img, k, img.Bounds()),
		Auto:     render.AutoPalette(img),
	})
	return js.ValueOf(string(data))
}
