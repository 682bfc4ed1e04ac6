package render

import "github.com/xob0t/signstencil/pkg/template"

// Effective combines an element capability with a global permission.
// A text effect is applied only when the box declares it and the user
// allows it.
func Effective(capability, permission bool) bool {
	return capability && permission
}

// Effects are the effective text treatments of one box.
type Effects struct {
	Upper  bool `json:"upper"`
	Shadow bool `json:"shadow"`
	Stroke bool `json:"stroke"`
}

// EffectsFor resolves the effects of tb under adj.
func EffectsFor(tb template.TextBox, adj template.Adjustments) Effects {
	return Effects{
		Upper:  Effective(tb.Upper, adj.Upper),
		Shadow: Effective(tb.Shadow, adj.Shadow),
		Stroke: Effective(tb.Stroke, adj.Stroke),
	}
}
