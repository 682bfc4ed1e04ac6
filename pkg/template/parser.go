// parser.go — Template encoding and the sample file written by `init`.
package template

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// EncodeYAML renders specs as a YAML document. A single spec is written as
// a mapping, several as a sequence.
func EncodeYAML(specs ...Spec) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	var v any = specs
	if len(specs) == 1 {
		v = specs[0]
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GetExampleYAML returns a sample template file and a sample job file.
func GetExampleYAML() (templatesYAML, jobYAML string) {
	templatesYAML = `# Sign templates. Sizes are pixels on a 1200px-wide canvas.
- id: faixa-dupla
  name: Faixa Dupla
  description: Top bar for the name, contact pill stacked beneath it
  palette: auto
  shapes:
    - id: banner
      kind: bar
      anchor: top
      width: "100%"
      height: 110
      opacity: 0.9
    - id: phone-pill
      kind: pill
      anchor: top
      parent: banner
      width: 260
      height: 48
      radius: 24
      offsetY: 16
  text:
    - id: title
      area: banner
      align: center
      verticalAlign: top
      maxLines: 1
      minSize: 36
      maxSize: 64
      weight: 800
      upper: true
      padding: 12
    - id: subtitle
      area: banner
      align: center
      verticalAlign: bottom
      maxLines: 1
      minSize: 16
      maxSize: 22
      padding: 10
    - id: phone
      area: phone-pill
      align: center
      verticalAlign: middle
      maxLines: 1
      minSize: 18
      maxSize: 24
      weight: 600
      padding: 0

- id: cartao-fixo
  name: Cartao Fixo
  palette:
    background: "#1f2937"
    foreground: "#fbbf24"
  shapes:
    - id: card
      kind: box
      anchor: bottom-right
      width: 420
      height: 200
      radius: 18
      offsetX: -40
      offsetY: -40
  text:
    - id: title
      area: card
      align: left
      verticalAlign: top
      maxLines: 2
      minSize: 28
      maxSize: 48
      weight: 700
      padding: 24
    - id: phone
      area: card
      align: left
      verticalAlign: bottom
      maxLines: 1
      minSize: 18
      maxSize: 24
      padding: 24
`

	jobYAML = `# Render job: pick a template, fill the three slots, set the toggles.
template: faixa-dupla
texts:
  title: Padaria Pao Quente
  subtitle: desde 1987
  phone: (11) 5555-0100
adjustments:
  isUpper: true
  hasShadow: true
  hasStroke: false
  palette: auto
`
	return
}
