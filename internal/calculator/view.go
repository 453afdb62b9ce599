package calculator

import (
	"fmt"
	"strings"

	"sam-calculator/internal/safemath"
)

// Renderer turns representations into something a user sees.
type Renderer interface {
	Render(rep Representation)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(rep Representation)

func (f RendererFunc) Render(rep Representation) { f(rep) }

// Represent derives the display of s. The error text, when present, takes
// the place of the output and of the alert text.
func Represent(s State) Representation {
	rep := Representation{
		Output:     safemath.Group(s.Output),
		Expression: strings.Join(s.Expression, " "),
	}

	display := rep.Output
	if len(s.Expression) == 2 {
		display = rep.Expression
	}

	if s.Error != "" {
		rep.Output = s.Error
		rep.Error = s.Error
		rep.HasError = true
		display = s.Error
	}

	rep.Alert = fmt.Sprintf(`Display is "%s"`, display)
	return rep
}
